package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/validation"
)

const (
	MinNumberOfPeople = 1
	MaxNumberOfPeople = 100
)

type Job struct {
	ID                 uuid.UUID
	ClientID           uuid.UUID
	FreelancerID       *uuid.UUID
	Title              string
	Description        string
	Category           string
	Amount             int64
	NumberOfPeople     int
	Address            string
	GenderPreference   valueobject.GenderPreference
	Status             valueobject.JobStatus
	IsActive           bool
	AssignedAt         *time.Time
	WorkDoneAt         *time.Time
	PaymentCompletedAt *time.Time
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type NewJobParams struct {
	ClientID         uuid.UUID
	Title            string
	Description      string
	Category         string
	Amount           int64
	NumberOfPeople   int
	Address          string
	GenderPreference string
}

// NewJob валидирует параметры и создаёт открытое задание.
func NewJob(p NewJobParams, now time.Time) (*Job, error) {
	title := strings.TrimSpace(p.Title)
	if err := validation.ValidateJobTitle(title); err != nil {
		return nil, apperror.Validation("title", err.Error())
	}
	description := strings.TrimSpace(p.Description)
	if err := validation.ValidateJobDescription(description); err != nil {
		return nil, apperror.Validation("description", err.Error())
	}
	if err := validation.ValidateNonEmpty("категория", p.Category); err != nil {
		return nil, apperror.Validation("category", err.Error())
	}
	if err := validation.ValidateNonEmpty("адрес", p.Address); err != nil {
		return nil, apperror.Validation("address", err.Error())
	}
	if err := valueobject.ValidateAmount("amount", p.Amount); err != nil {
		return nil, err
	}
	if p.NumberOfPeople < MinNumberOfPeople || p.NumberOfPeople > MaxNumberOfPeople {
		return nil, apperror.Validation("number_of_people", "количество исполнителей должно быть от 1 до 100")
	}
	gender, err := valueobject.NewGenderPreference(p.GenderPreference)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:               uuid.New(),
		ClientID:         p.ClientID,
		Title:            title,
		Description:      description,
		Category:         strings.TrimSpace(p.Category),
		Amount:           p.Amount,
		NumberOfPeople:   p.NumberOfPeople,
		Address:          strings.TrimSpace(p.Address),
		GenderPreference: gender,
		Status:           valueobject.JobStatusOpen,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (j *Job) IsOwnedBy(userID uuid.UUID) bool {
	return j.ClientID == userID
}

func (j *Job) IsAssignedTo(userID uuid.UUID) bool {
	return j.FreelancerID != nil && *j.FreelancerID == userID
}

func (j *Job) EnsureStatus(expected valueobject.JobStatus, message string) error {
	if j.Status != expected {
		return apperror.InvalidState(message, j.Status)
	}
	return nil
}

// CheckDeletable разрешает удаление только открытого задания.
func (j *Job) CheckDeletable() error {
	return j.EnsureStatus(valueobject.JobStatusOpen, "удалить можно только открытое задание")
}

// CheckWorkDone проверяет, что отметить выполнение может только назначенный исполнитель.
func (j *Job) CheckWorkDone(freelancerID uuid.UUID) error {
	if !j.IsAssignedTo(freelancerID) || j.Status != valueobject.JobStatusAssigned {
		return apperror.New(apperror.ErrCodeForbidden, "отметить выполнение может только назначенный исполнитель назначенного задания").
			WithDetail("current_status", j.Status)
	}
	return nil
}

// JobConflict: задание, мешающее смене роли.
type JobConflict struct {
	JobID  uuid.UUID             `json:"job_id"`
	Title  string                `json:"title"`
	Status valueobject.JobStatus `json:"status"`
}
