package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/settlement"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/wallet"
)

type WalletUseCases struct {
	Get             *wallet.GetWalletUseCase
	Transactions    *wallet.ListTransactionsUseCase
	Withdraw        *wallet.RequestWithdrawalUseCase
	Resolve         *wallet.ResolveWithdrawalUseCase
	ListWithdrawals *wallet.ListWithdrawalsUseCase
	GetCommission   *settlement.GetCommissionRateUseCase
	SetCommission   *settlement.SetCommissionRateUseCase
}

type WalletHandler struct {
	uc WalletUseCases
}

func NewWalletHandler(uc WalletUseCases) *WalletHandler {
	return &WalletHandler{uc: uc}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	w, err := h.uc.Get.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToWalletResponse(w))
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	items, total, err := h.uc.Transactions.Execute(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToTransactionResponses(items), total, limit, offset)
}

func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.WithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.uc.Withdraw.Execute(c.Request.Context(), wallet.RequestWithdrawalInput{
		UserID: userID,
		Amount: req.Amount,
		Bank:   req.BankDetails,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToTransactionResponse(created))
}

func (h *WalletHandler) ListMyWithdrawals(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	items, total, err := h.uc.ListWithdrawals.Execute(c.Request.Context(), wallet.ListWithdrawalsInput{
		UserID: &userID,
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToTransactionResponses(items), total, limit, offset)
}

// ListWithdrawals: все заявки на вывод, для администратора.
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	limit, offset := page(c)
	items, total, err := h.uc.ListWithdrawals.Execute(c.Request.Context(), wallet.ListWithdrawalsInput{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToTransactionResponses(items), total, limit, offset)
}

func (h *WalletHandler) ResolveWithdrawal(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveWithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	resolved, err := h.uc.Resolve.Execute(c.Request.Context(), wallet.ResolveWithdrawalInput{
		TransactionID: txID,
		AdminID:       adminID,
		Action:        req.Action,
		FailureReason: req.FailureReason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToTransactionResponse(resolved))
}

func (h *WalletHandler) GetCommission(c *gin.Context) {
	rate, err := h.uc.GetCommission.Execute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToCommissionResponse(rate))
}

func (h *WalletHandler) SetCommission(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SetCommissionRequest
	if !bindJSON(c, &req) {
		return
	}
	rate, err := h.uc.SetCommission.Execute(c.Request.Context(), adminID, *req.Rate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToCommissionResponse(rate))
}
