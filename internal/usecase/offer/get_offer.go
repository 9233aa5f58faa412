package offer

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

type ListJobOffersUseCase struct {
	jobs   repository.JobRepository
	offers repository.OfferRepository
}

func NewListJobOffersUseCase(jobs repository.JobRepository, offers repository.OfferRepository) *ListJobOffersUseCase {
	return &ListJobOffersUseCase{jobs: jobs, offers: offers}
}

// Execute возвращает владельцу все предложения задания, остальным только их собственные.
func (uc *ListJobOffersUseCase) Execute(ctx context.Context, jobID, userID uuid.UUID) ([]*entity.Offer, error) {
	job, err := uc.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	offers, err := uc.offers.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsOwnedBy(userID) {
		return offers, nil
	}

	own := make([]*entity.Offer, 0, 1)
	for _, o := range offers {
		if o.IsOwnedBy(userID) {
			own = append(own, o)
		}
	}
	return own, nil
}

type ListMyOffersUseCase struct {
	offers repository.OfferRepository
}

func NewListMyOffersUseCase(offers repository.OfferRepository) *ListMyOffersUseCase {
	return &ListMyOffersUseCase{offers: offers}
}

func (uc *ListMyOffersUseCase) Execute(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Offer, error) {
	return uc.offers.ListByFreelancer(ctx, freelancerID, limit, offset)
}

type GetOfferUseCase struct {
	offers repository.OfferRepository
}

func NewGetOfferUseCase(offers repository.OfferRepository) *GetOfferUseCase {
	return &GetOfferUseCase{offers: offers}
}

// Execute доступен только участникам: автору предложения и владельцу задания.
func (uc *GetOfferUseCase) Execute(ctx context.Context, offerID, userID uuid.UUID) (*entity.Offer, error) {
	offer, err := uc.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.FreelancerID != userID && offer.ClientID != userID {
		return nil, apperror.ErrOfferNotFound
	}
	return offer, nil
}
