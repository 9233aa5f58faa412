package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

const jobColumns = `id, client_id, freelancer_id, title, description, category, amount, number_of_people,
		address, gender_preference, status, is_active, assigned_at, work_done_at, payment_completed_at,
		cancelled_at, created_at, updated_at`

type JobRepositoryAdapter struct {
	db *sqlx.DB
}

func NewJobRepositoryAdapter(db *sqlx.DB) *JobRepositoryAdapter {
	return &JobRepositoryAdapter{db: db}
}

func (r *JobRepositoryAdapter) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO jobs (id, client_id, title, description, category, amount, number_of_people,
			address, gender_preference, status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		job.ID, job.ClientID, job.Title, job.Description, job.Category, job.Amount, job.NumberOfPeople,
		job.Address, string(job.GenderPreference), string(job.Status), job.IsActive, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось создать задание")
	}
	return nil
}

func (r *JobRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return r.findOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

func (r *JobRepositoryAdapter) Lock(ctx context.Context, id uuid.UUID, mode repository.LockMode) (*entity.Job, error) {
	clause := " FOR SHARE"
	if mode == repository.LockUpdate {
		clause = " FOR UPDATE"
	}
	return r.findOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`+clause, id)
}

func (r *JobRepositoryAdapter) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Job, error) {
	var row jobRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, dbError(err, "не удалось получить задание")
	}
	return row.toEntity(), nil
}

func (r *JobRepositoryAdapter) Assign(ctx context.Context, id, freelancerID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE jobs SET status = 'assigned', freelancer_id = $2, assigned_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'open'
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, freelancerID, at)
	return affected(res, err, "не удалось назначить исполнителя")
}

// statusTimestampColumn: колонка, фиксирующая момент входа в статус.
func statusTimestampColumn(status valueobject.JobStatus) string {
	switch status {
	case valueobject.JobStatusWorkDone:
		return "work_done_at"
	case valueobject.JobStatusCompleted:
		return "payment_completed_at"
	case valueobject.JobStatusCancelled:
		return "cancelled_at"
	case valueobject.JobStatusAssigned:
		return "assigned_at"
	}
	return ""
}

func (r *JobRepositoryAdapter) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus, at time.Time) (bool, error) {
	if err := from.CheckTransition(to); err != nil {
		return false, err
	}
	set := "status = $3, updated_at = $4"
	// Возврат из waiting_for_payment в work_done сохраняет исходное время выполнения.
	if col := statusTimestampColumn(to); col != "" && !(to == valueobject.JobStatusWorkDone && from == valueobject.JobStatusWaitingForPayment) {
		set += ", " + col + " = $4"
	}
	query := fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $1 AND status = $2`, set)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, string(from), string(to), at)
	return affected(res, err, "не удалось обновить статус задания")
}

func (r *JobRepositoryAdapter) DeleteOpen(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM jobs WHERE id = $1 AND status = 'open'`, id)
	return affected(res, err, "не удалось удалить задание")
}

func (r *JobRepositoryAdapter) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE jobs SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	if err != nil {
		return dbError(err, "не удалось изменить видимость задания")
	}
	return nil
}

func (r *JobRepositoryAdapter) List(ctx context.Context, filter repository.JobFilter) ([]*entity.Job, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.ClientID != nil {
		add("client_id = $%d", *filter.ClientID)
	}
	if filter.FreelancerID != nil {
		add("freelancer_id = $%d", *filter.FreelancerID)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM jobs`+clause, args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать задания")
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM jobs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, clause, len(args)-1, len(args))

	var rows []jobRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить задания")
	}
	jobs := make([]*entity.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toEntity())
	}
	return jobs, total, nil
}

func (r *JobRepositoryAdapter) FindClientConflicts(ctx context.Context, clientID uuid.UUID) ([]entity.JobConflict, error) {
	query := `
		SELECT id, title, status FROM jobs
		WHERE client_id = $1 AND status = 'open' AND is_active
		ORDER BY created_at
	`
	return r.conflicts(ctx, query, clientID)
}

func (r *JobRepositoryAdapter) FindFreelancerConflicts(ctx context.Context, freelancerID uuid.UUID) ([]entity.JobConflict, error) {
	statuses := make([]string, 0, len(valueobject.FreelancerObligationStatuses))
	for _, s := range valueobject.FreelancerObligationStatuses {
		statuses = append(statuses, string(s))
	}
	query := `
		SELECT id, title, status FROM jobs
		WHERE freelancer_id = $1 AND status = ANY($2)
		ORDER BY created_at
	`
	return r.conflicts(ctx, query, freelancerID, pq.Array(statuses))
}

func (r *JobRepositoryAdapter) conflicts(ctx context.Context, query string, args ...any) ([]entity.JobConflict, error) {
	var rows []struct {
		ID     uuid.UUID `db:"id"`
		Title  string    `db:"title"`
		Status string    `db:"status"`
	}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbError(err, "не удалось проверить активные задания")
	}
	conflicts := make([]entity.JobConflict, 0, len(rows))
	for _, row := range rows {
		conflicts = append(conflicts, entity.JobConflict{
			JobID:  row.ID,
			Title:  row.Title,
			Status: valueobject.JobStatus(row.Status),
		})
	}
	return conflicts, nil
}

type jobRow struct {
	ID                 uuid.UUID  `db:"id"`
	ClientID           uuid.UUID  `db:"client_id"`
	FreelancerID       *uuid.UUID `db:"freelancer_id"`
	Title              string     `db:"title"`
	Description        string     `db:"description"`
	Category           string     `db:"category"`
	Amount             int64      `db:"amount"`
	NumberOfPeople     int        `db:"number_of_people"`
	Address            string     `db:"address"`
	GenderPreference   string     `db:"gender_preference"`
	Status             string     `db:"status"`
	IsActive           bool       `db:"is_active"`
	AssignedAt         *time.Time `db:"assigned_at"`
	WorkDoneAt         *time.Time `db:"work_done_at"`
	PaymentCompletedAt *time.Time `db:"payment_completed_at"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (j *jobRow) toEntity() *entity.Job {
	return &entity.Job{
		ID:                 j.ID,
		ClientID:           j.ClientID,
		FreelancerID:       j.FreelancerID,
		Title:              j.Title,
		Description:        j.Description,
		Category:           j.Category,
		Amount:             j.Amount,
		NumberOfPeople:     j.NumberOfPeople,
		Address:            j.Address,
		GenderPreference:   valueobject.GenderPreference(j.GenderPreference),
		Status:             valueobject.JobStatus(j.Status),
		IsActive:           j.IsActive,
		AssignedAt:         j.AssignedAt,
		WorkDoneAt:         j.WorkDoneAt,
		PaymentCompletedAt: j.PaymentCompletedAt,
		CancelledAt:        j.CancelledAt,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
	}
}
