package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/service"
)

type PhoneLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
	Role    string `json:"role" binding:"required"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type SwitchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type SetVerificationRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ProfileResponse struct {
	DisplayName        string  `json:"display_name"`
	Gender             string  `json:"gender"`
	VerificationStatus string  `json:"verification_status"`
	VerificationNote   *string `json:"verification_note"`
	TotalJobs          int     `json:"total_jobs"`
	CompletedJobs      int     `json:"completed_jobs"`
	TotalEarnings      int64   `json:"total_earnings"`
	TotalSpent         int64   `json:"total_spent"`
	JobsPosted         int     `json:"jobs_posted"`
}

type TokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResponse struct {
	User    UserResponse   `json:"user"`
	Tokens  TokensResponse `json:"tokens"`
	Created bool           `json:"created"`
}

type MeResponse struct {
	User    UserResponse    `json:"user"`
	Profile ProfileResponse `json:"profile"`
	Balance int64           `json:"balance"`
}

type SwitchRoleResponse struct {
	User   UserResponse   `json:"user"`
	Tokens TokensResponse `json:"tokens"`
}

type RoleCheckResponse struct {
	Allowed       bool                 `json:"allowed"`
	Reason        string               `json:"reason"`
	ConflictCount int                  `json:"conflict_count"`
	Conflicts     []entity.JobConflict `json:"conflicts"`
}

type NotificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

type NotificationListResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int                    `json:"unread_count"`
}

func ToUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Phone:       u.Phone,
		Email:       u.Email,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func ToProfileResponse(p *entity.Profile) ProfileResponse {
	return ProfileResponse{
		DisplayName:        p.DisplayName,
		Gender:             p.Gender,
		VerificationStatus: string(p.VerificationStatus),
		VerificationNote:   p.VerificationNote,
		TotalJobs:          p.TotalJobs,
		CompletedJobs:      p.CompletedJobs,
		TotalEarnings:      p.TotalEarnings,
		TotalSpent:         p.TotalSpent,
		JobsPosted:         p.JobsPosted,
	}
}

func ToTokensResponse(t *service.TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    int64(t.ExpiresIn.Seconds()),
	}
}

func ToNotificationResponses(items []*entity.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		payload := n.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Event:     n.Event,
			Payload:   payload,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
