package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/offer"
)

type OfferUseCases struct {
	Submit   *offer.SubmitOfferUseCase
	Respond  *offer.RespondToOfferUseCase
	Withdraw *offer.WithdrawOfferUseCase
	Get      *offer.GetOfferUseCase
	ListJob  *offer.ListJobOffersUseCase
	ListMy   *offer.ListMyOffersUseCase
}

type OfferHandler struct {
	uc OfferUseCases
}

func NewOfferHandler(uc OfferUseCases) *OfferHandler {
	return &OfferHandler{uc: uc}
}

func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitOfferRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.uc.Submit.Execute(c.Request.Context(), offer.SubmitOfferInput{
		JobID:         jobID,
		FreelancerID:  userID,
		OfferedAmount: req.OfferedAmount,
		Message:       req.Message,
		OfferType:     req.OfferType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	body := dto.SubmitOfferResponse{
		Offer:   dto.ToOfferResponse(out.Offer),
		Outcome: out.Outcome,
		Job:     dto.ToJobResponsePtr(out.Job),
	}
	if out.Outcome == offer.OutcomeCreated {
		response.Created(c, body)
		return
	}
	response.Success(c, body)
}

func (h *OfferHandler) ListJobOffers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	offers, err := h.uc.ListJob.Execute(c.Request.Context(), jobID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOfferResponses(offers))
}

func (h *OfferHandler) GetOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	found, err := h.uc.Get.Execute(c.Request.Context(), offerID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOfferResponse(found))
}

func (h *OfferHandler) RespondToOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RespondToOfferRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.uc.Respond.Execute(c.Request.Context(), offer.RespondToOfferInput{
		OfferID:         offerID,
		ClientID:        userID,
		Action:          req.Action,
		ResponseMessage: req.ResponseMessage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.RespondToOfferResponse{
		Offer:    dto.ToOfferResponse(out.Offer),
		Job:      dto.ToJobResponsePtr(out.Job),
		Rejected: out.Rejected,
	})
}

func (h *OfferHandler) WithdrawOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	withdrawn, err := h.uc.Withdraw.Execute(c.Request.Context(), offerID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOfferResponse(withdrawn))
}

func (h *OfferHandler) ListMyOffers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	offers, err := h.uc.ListMy.Execute(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOfferResponses(offers))
}
