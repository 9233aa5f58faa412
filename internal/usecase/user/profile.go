package user

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
)

type MeOutput struct {
	User    *entity.User
	Profile *entity.Profile
	Wallet  *entity.Wallet
}

type GetMeUseCase struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	wallets  repository.WalletRepository
}

func NewGetMeUseCase(users repository.UserRepository, profiles repository.ProfileRepository, wallets repository.WalletRepository) *GetMeUseCase {
	return &GetMeUseCase{users: users, profiles: profiles, wallets: wallets}
}

func (uc *GetMeUseCase) Execute(ctx context.Context, userID uuid.UUID) (*MeOutput, error) {
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := uc.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := uc.wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeOutput{User: user, Profile: profile, Wallet: wallet}, nil
}

type SetVerificationUseCase struct {
	profiles repository.ProfileRepository
}

func NewSetVerificationUseCase(profiles repository.ProfileRepository) *SetVerificationUseCase {
	return &SetVerificationUseCase{profiles: profiles}
}

// Execute выставляет статус проверки профиля. Отправлять предложения могут только approved.
func (uc *SetVerificationUseCase) Execute(ctx context.Context, adminID, userID uuid.UUID, status, note string) (*entity.Profile, error) {
	verification, err := valueobject.NewVerificationStatus(status)
	if err != nil {
		return nil, err
	}
	var notePtr *string
	if note = strings.TrimSpace(note); note != "" {
		notePtr = &note
	}
	if _, err := uc.profiles.FindByUserID(ctx, userID); err != nil {
		return nil, err
	}
	if err := uc.profiles.UpdateVerification(ctx, userID, verification, notePtr); err != nil {
		return nil, err
	}
	logger.WithUser(adminID).WithField("target_user_id", userID).WithField("status", verification).Info("статус проверки изменён")
	return uc.profiles.FindByUserID(ctx, userID)
}
