package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
)

type User struct {
	ID           uuid.UUID
	Phone        string
	Email        *string
	PasswordHash *string
	Role         valueobject.Role
	RoleVersion  int
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewUser(phone string, role valueobject.Role, now time.Time) *User {
	return &User{
		ID:          uuid.New(),
		Phone:       phone,
		Role:        role,
		RoleVersion: 1,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (u *User) HasRole(role valueobject.Role) bool {
	return u.Role == role
}

// Profile хранит публичные данные и агрегаты пользователя.
type Profile struct {
	UserID             uuid.UUID
	DisplayName        string
	Gender             string
	VerificationStatus valueobject.VerificationStatus
	VerificationNote   *string
	TotalJobs          int
	CompletedJobs      int
	TotalEarnings      int64
	TotalSpent         int64
	JobsPosted         int
	UpdatedAt          time.Time
}

func NewProfile(userID uuid.UUID, now time.Time) *Profile {
	return &Profile{
		UserID:             userID,
		Gender:             "unspecified",
		VerificationStatus: valueobject.VerificationNotSubmitted,
		UpdatedAt:          now,
	}
}

func (p *Profile) IsVerified() bool {
	return p.VerificationStatus == valueobject.VerificationApproved
}

type Wallet struct {
	UserID    uuid.UUID
	Balance   int64
	UpdatedAt time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Event     string
	Payload   json.RawMessage
	IsRead    bool
	CreatedAt time.Time
}
