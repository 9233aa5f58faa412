package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

const offerColumns = `id, job_id, freelancer_id, client_id, original_amount, offered_amount, message,
		status, offer_type, response_message, responded_at, created_at, updated_at`

type OfferRepositoryAdapter struct {
	db *sqlx.DB
}

func NewOfferRepositoryAdapter(db *sqlx.DB) *OfferRepositoryAdapter {
	return &OfferRepositoryAdapter{db: db}
}

func (r *OfferRepositoryAdapter) FindActiveForUpdate(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Offer, error) {
	var row offerRow
	query := `SELECT ` + offerColumns + ` FROM offers
		WHERE job_id = $1 AND freelancer_id = $2 AND status IN ('pending', 'accepted')
		FOR UPDATE`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, jobID, freelancerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError(err, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *OfferRepositoryAdapter) Insert(ctx context.Context, offer *entity.Offer) (bool, error) {
	query := `
		INSERT INTO offers (id, job_id, freelancer_id, client_id, original_amount, offered_amount, message,
			status, offer_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id, freelancer_id) WHERE status IN ('pending', 'accepted') DO NOTHING
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		offer.ID, offer.JobID, offer.FreelancerID, offer.ClientID, offer.OriginalAmount, offer.OfferedAmount,
		offer.Message, string(offer.Status), string(offer.OfferType), offer.CreatedAt, offer.UpdatedAt,
	)
	return affected(res, err, "не удалось создать предложение")
}

func (r *OfferRepositoryAdapter) Revise(ctx context.Context, offer *entity.Offer) error {
	query := `
		UPDATE offers SET offered_amount = $2, message = $3, offer_type = $4, updated_at = $5
		WHERE id = $1 AND status = 'pending'
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		offer.ID, offer.OfferedAmount, offer.Message, string(offer.OfferType), offer.UpdatedAt,
	)
	ok, err := affected(res, err, "не удалось обновить предложение")
	if err != nil {
		return err
	}
	if !ok {
		return apperror.AlreadyResolved(offer.Status)
	}
	return nil
}

func (r *OfferRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Offer, error) {
	var row offerRow
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, dbError(err, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *OfferRepositoryAdapter) Resolve(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, responseMessage *string, at time.Time) (bool, error) {
	query := `
		UPDATE offers SET status = $3, response_message = COALESCE($4, response_message),
			responded_at = CASE WHEN $3 IN ('accepted', 'rejected') THEN $5 ELSE responded_at END,
			updated_at = $5
		WHERE id = $1 AND status = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, string(from), string(to), responseMessage, at)
	return affected(res, err, "не удалось обновить предложение")
}

func (r *OfferRepositoryAdapter) RejectPending(ctx context.Context, jobID, exceptID uuid.UUID, responseMessage string, at time.Time) (int64, error) {
	query := `
		UPDATE offers SET status = 'rejected', response_message = $3, responded_at = $4, updated_at = $4
		WHERE job_id = $1 AND id <> $2 AND status = 'pending'
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, jobID, exceptID, responseMessage, at)
	if err != nil {
		return 0, dbError(err, "не удалось отклонить предложения")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(err, "не удалось отклонить предложения")
	}
	return n, nil
}

func (r *OfferRepositoryAdapter) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.Offer, error) {
	var rows []offerRow
	query := `SELECT ` + offerColumns + ` FROM offers WHERE job_id = $1 ORDER BY created_at DESC`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, dbError(err, "не удалось получить предложения")
	}
	return toOfferEntities(rows), nil
}

func (r *OfferRepositoryAdapter) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Offer, error) {
	limit, offset = normalizePage(limit, offset)
	var rows []offerRow
	query := `SELECT ` + offerColumns + ` FROM offers WHERE freelancer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, freelancerID, limit, offset); err != nil {
		return nil, dbError(err, "не удалось получить предложения")
	}
	return toOfferEntities(rows), nil
}

type offerRow struct {
	ID              uuid.UUID  `db:"id"`
	JobID           uuid.UUID  `db:"job_id"`
	FreelancerID    uuid.UUID  `db:"freelancer_id"`
	ClientID        uuid.UUID  `db:"client_id"`
	OriginalAmount  int64      `db:"original_amount"`
	OfferedAmount   int64      `db:"offered_amount"`
	Message         *string    `db:"message"`
	Status          string     `db:"status"`
	OfferType       string     `db:"offer_type"`
	ResponseMessage *string    `db:"response_message"`
	RespondedAt     *time.Time `db:"responded_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (o *offerRow) toEntity() *entity.Offer {
	return &entity.Offer{
		ID:              o.ID,
		JobID:           o.JobID,
		FreelancerID:    o.FreelancerID,
		ClientID:        o.ClientID,
		OriginalAmount:  o.OriginalAmount,
		OfferedAmount:   o.OfferedAmount,
		Message:         o.Message,
		Status:          valueobject.OfferStatus(o.Status),
		OfferType:       valueobject.OfferType(o.OfferType),
		ResponseMessage: o.ResponseMessage,
		RespondedAt:     o.RespondedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOfferEntities(rows []offerRow) []*entity.Offer {
	offers := make([]*entity.Offer, 0, len(rows))
	for i := range rows {
		offers = append(offers, rows[i].toEntity())
	}
	return offers
}
