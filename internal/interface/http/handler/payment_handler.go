package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/settlement"
)

type PaymentHandler struct {
	pay      *settlement.PayForJobUseCase
	initiate *settlement.InitiateGatewayPaymentUseCase
	callback *settlement.GatewayCallbackUseCase
}

// NewPaymentHandler создаёт обработчик. initiate и callback равны nil, если шлюз не настроен.
func NewPaymentHandler(pay *settlement.PayForJobUseCase, initiate *settlement.InitiateGatewayPaymentUseCase, callback *settlement.GatewayCallbackUseCase) *PaymentHandler {
	return &PaymentHandler{pay: pay, initiate: initiate, callback: callback}
}

func (h *PaymentHandler) PayForJob(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.pay.Execute(c.Request.Context(), jobID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toSettlementResponse(result))
}

func (h *PaymentHandler) InitiateGatewayPayment(c *gin.Context) {
	if h.initiate == nil {
		response.Error(c, apperror.New(apperror.ErrCodeBadRequest, "оплата через платёжный шлюз недоступна"))
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.initiate.Execute(c.Request.Context(), jobID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.GatewayPaymentResponse{
		Transaction:      dto.ToTransactionResponse(out.Transaction),
		AuthorizationURL: out.AuthorizationURL,
	})
}

// GatewayCallback принимает уведомление шлюза. Подпись проверена middleware.
func (h *PaymentHandler) GatewayCallback(c *gin.Context) {
	if h.callback == nil {
		response.NotFound(c, "платёжный шлюз не настроен")
		return
	}
	var req dto.GatewayCallbackRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.callback.Execute(c.Request.Context(), settlement.GatewayCallbackInput{
		Reference: req.Reference,
		Status:    req.Status,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.GatewayCallbackResponse{
		Transaction: dto.ToTransactionResponse(out.Transaction),
		Duplicate:   out.Duplicate,
		Settled:     out.Settlement != nil,
		Refunded:    out.Refund != nil,
	})
}

func toSettlementResponse(r *settlement.SettlementResult) dto.SettlementResponse {
	resp := dto.SettlementResponse{
		Job:              dto.ToJobResponse(r.Job),
		Payment:          dto.ToTransactionResponse(r.Payment),
		Amount:           r.Split.Amount,
		CommissionAmount: r.Split.Commission,
		FreelancerAmount: r.Split.FreelancerAmount,
		Rate:             dto.ToCommissionResponse(r.Split.Rate),
	}
	if r.Commission != nil {
		commission := dto.ToTransactionResponse(r.Commission)
		resp.Commission = &commission
	}
	return resp
}
