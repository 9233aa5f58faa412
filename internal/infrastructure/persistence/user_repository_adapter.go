package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

const userColumns = `id, phone, email, password_hash, role, role_version, is_active, last_login_at, created_at, updated_at`

type UserRepositoryAdapter struct {
	db *sqlx.DB
}

func NewUserRepositoryAdapter(db *sqlx.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{db: db}
}

func (r *UserRepositoryAdapter) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, phone, email, password_hash, role, role_version, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		user.ID, user.Phone, user.Email, user.PasswordHash, string(user.Role), user.RoleVersion,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "пользователь с таким телефоном уже существует")
		}
		return dbError(err, "не удалось создать пользователя")
	}
	return nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepositoryAdapter) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *UserRepositoryAdapter) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepositoryAdapter) Lock(ctx context.Context, id uuid.UUID, mode repository.LockMode) (*entity.User, error) {
	clause := " FOR SHARE"
	if mode == repository.LockUpdate {
		clause = " FOR UPDATE"
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`+clause, id)
}

func (r *UserRepositoryAdapter) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var row userRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, dbError(err, "не удалось получить пользователя")
	}
	return row.toEntity(), nil
}

func (r *UserRepositoryAdapter) UpdateRole(ctx context.Context, id uuid.UUID, role valueobject.Role, expectedVersion int) (bool, error) {
	query := `
		UPDATE users SET role = $2, role_version = role_version + 1, updated_at = NOW()
		WHERE id = $1 AND role_version = $3
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, string(role), expectedVersion)
	return affected(res, err, "не удалось сменить роль")
}

func (r *UserRepositoryAdapter) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return dbError(err, "не удалось обновить время входа")
	}
	return nil
}

type userRow struct {
	ID           uuid.UUID  `db:"id"`
	Phone        string     `db:"phone"`
	Email        *string    `db:"email"`
	PasswordHash *string    `db:"password_hash"`
	Role         string     `db:"role"`
	RoleVersion  int        `db:"role_version"`
	IsActive     bool       `db:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (u *userRow) toEntity() *entity.User {
	return &entity.User{
		ID:           u.ID,
		Phone:        u.Phone,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         valueobject.Role(u.Role),
		RoleVersion:  u.RoleVersion,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type ProfileRepositoryAdapter struct {
	db *sqlx.DB
}

func NewProfileRepositoryAdapter(db *sqlx.DB) *ProfileRepositoryAdapter {
	return &ProfileRepositoryAdapter{db: db}
}

func (r *ProfileRepositoryAdapter) Create(ctx context.Context, p *entity.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, gender, verification_status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, p.UserID, p.DisplayName, p.Gender, string(p.VerificationStatus), p.UpdatedAt)
	if err != nil {
		return dbError(err, "не удалось создать профиль")
	}
	return nil
}

func (r *ProfileRepositoryAdapter) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var row profileRow
	query := `
		SELECT user_id, display_name, gender, verification_status, verification_note, total_jobs,
			completed_jobs, total_earnings, total_spent, jobs_posted, updated_at
		FROM profiles WHERE user_id = $1
	`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProfileNotFound
		}
		return nil, dbError(err, "не удалось получить профиль")
	}
	return row.toEntity(), nil
}

func (r *ProfileRepositoryAdapter) UpdateVerification(ctx context.Context, userID uuid.UUID, status valueobject.VerificationStatus, note *string) error {
	query := `UPDATE profiles SET verification_status = $2, verification_note = $3, updated_at = NOW() WHERE user_id = $1`
	ok, err := r.exec(ctx, query, "не удалось обновить статус верификации", userID, string(status), note)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepositoryAdapter) AddFreelancerEarnings(ctx context.Context, userID uuid.UUID, amount int64) error {
	query := `
		UPDATE profiles SET total_jobs = total_jobs + 1, completed_jobs = completed_jobs + 1,
			total_earnings = total_earnings + $2, updated_at = NOW()
		WHERE user_id = $1
	`
	_, err := r.exec(ctx, query, "не удалось обновить статистику исполнителя", userID, amount)
	return err
}

func (r *ProfileRepositoryAdapter) AddClientSpending(ctx context.Context, userID uuid.UUID, amount int64) error {
	query := `UPDATE profiles SET total_spent = total_spent + $2, updated_at = NOW() WHERE user_id = $1`
	_, err := r.exec(ctx, query, "не удалось обновить статистику клиента", userID, amount)
	return err
}

func (r *ProfileRepositoryAdapter) IncrementJobsPosted(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE profiles SET jobs_posted = jobs_posted + 1, updated_at = NOW() WHERE user_id = $1`
	_, err := r.exec(ctx, query, "не удалось обновить статистику клиента", userID)
	return err
}

func (r *ProfileRepositoryAdapter) exec(ctx context.Context, query, message string, args ...any) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	return affected(res, err, message)
}

type profileRow struct {
	UserID             uuid.UUID `db:"user_id"`
	DisplayName        string    `db:"display_name"`
	Gender             string    `db:"gender"`
	VerificationStatus string    `db:"verification_status"`
	VerificationNote   *string   `db:"verification_note"`
	TotalJobs          int       `db:"total_jobs"`
	CompletedJobs      int       `db:"completed_jobs"`
	TotalEarnings      int64     `db:"total_earnings"`
	TotalSpent         int64     `db:"total_spent"`
	JobsPosted         int       `db:"jobs_posted"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (p *profileRow) toEntity() *entity.Profile {
	return &entity.Profile{
		UserID:             p.UserID,
		DisplayName:        p.DisplayName,
		Gender:             p.Gender,
		VerificationStatus: valueobject.VerificationStatus(p.VerificationStatus),
		VerificationNote:   p.VerificationNote,
		TotalJobs:          p.TotalJobs,
		CompletedJobs:      p.CompletedJobs,
		TotalEarnings:      p.TotalEarnings,
		TotalSpent:         p.TotalSpent,
		JobsPosted:         p.JobsPosted,
		UpdatedAt:          p.UpdatedAt,
	}
}
