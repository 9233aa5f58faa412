package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/service"
	"github.com/ignatzorin/gig-marketplace/internal/validation"
)

const identityService = "identity_provider"

type TokenIssuer interface {
	GeneratePair(user *entity.User) (*service.TokenPair, error)
	ParseRefresh(token string) (uuid.UUID, error)
}

type AuthResult struct {
	User   *entity.User
	Tokens *service.TokenPair
	// Created: пользователь зарегистрирован этим входом.
	Created bool
}

type PhoneLoginUseCase struct {
	tx       repository.Transactor
	users    repository.UserRepository
	profiles repository.ProfileRepository
	verifier repository.IdentityVerifier
	switcher *SwitchRoleUseCase
	tokens   TokenIssuer
	timeout  time.Duration
}

func NewPhoneLoginUseCase(
	tx repository.Transactor,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	verifier repository.IdentityVerifier,
	switcher *SwitchRoleUseCase,
	tokens TokenIssuer,
	timeout time.Duration,
) *PhoneLoginUseCase {
	return &PhoneLoginUseCase{
		tx:       tx,
		users:    users,
		profiles: profiles,
		verifier: verifier,
		switcher: switcher,
		tokens:   tokens,
		timeout:  timeout,
	}
}

// Execute входит по подтверждённому телефону. Новый номер регистрируется с
// выбранной ролью, для существующего роль меняется через проверку конфликтов.
func (uc *PhoneLoginUseCase) Execute(ctx context.Context, idToken, role string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, apperror.Validation("id_token", "токен обязателен")
	}
	requested, err := requestedRole(role)
	if err != nil {
		return nil, err
	}

	phone, err := uc.verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	result := &AuthResult{}
	user, err := uc.users.FindByPhone(ctx, phone)
	switch {
	case apperror.IsNotFound(err):
		user, err = uc.register(ctx, phone, requested)
		if err != nil {
			return nil, err
		}
		result.Created = true
	case err != nil:
		return nil, err
	default:
		if !user.IsActive {
			return nil, apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
		}
		if user.Role != requested {
			if user, err = uc.switcher.Execute(ctx, user.ID, string(requested)); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	if err := uc.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Warn("не удалось обновить время входа")
	}
	user.LastLoginAt = &now

	if result.Tokens, err = uc.tokens.GeneratePair(user); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}
	result.User = user

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
		"created": result.Created,
	}).Info("вход по телефону")
	return result, nil
}

func (uc *PhoneLoginUseCase) verify(ctx context.Context, idToken string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	phone, err := uc.verifier.VerifyPhoneToken(callCtx, idToken)
	if err != nil {
		if apperror.CodeOf(err) == apperror.ErrCodeUnauthorized {
			return "", err
		}
		return "", apperror.DependencyFailure(err, identityService)
	}
	if err := validation.ValidatePhone(phone); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeUnauthorized, "провайдер вернул некорректный номер телефона")
	}
	return phone, nil
}

func (uc *PhoneLoginUseCase) register(ctx context.Context, phone string, role valueobject.Role) (*entity.User, error) {
	now := time.Now().UTC()
	user := entity.NewUser(phone, role, now)
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.users.Create(ctx, user); err != nil {
			return err
		}
		return uc.profiles.Create(ctx, entity.NewProfile(user.ID, now))
	})
	if apperror.CodeOf(err) == apperror.ErrCodeConflict {
		// Параллельный вход с тем же номером успел зарегистрировать пользователя.
		return uc.users.FindByPhone(ctx, phone)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

type AdminLoginUseCase struct {
	users  repository.UserRepository
	tokens TokenIssuer
}

func NewAdminLoginUseCase(users repository.UserRepository, tokens TokenIssuer) *AdminLoginUseCase {
	return &AdminLoginUseCase{users: users, tokens: tokens}
}

func (uc *AdminLoginUseCase) Execute(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := uc.users.FindByEmail(ctx, email)
	if apperror.IsNotFound(err) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil || !user.HasRole(valueobject.RoleAdmin) || !user.IsActive {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	tokens, err := uc.tokens.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}
	logger.WithUser(user.ID).Info("вход администратора")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

type RefreshUseCase struct {
	users  repository.UserRepository
	tokens TokenIssuer
}

func NewRefreshUseCase(users repository.UserRepository, tokens TokenIssuer) *RefreshUseCase {
	return &RefreshUseCase{users: users, tokens: tokens}
}

// Execute выпускает новую пару по refresh токену. Роль читается из БД заново.
func (uc *RefreshUseCase) Execute(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	userID, err := uc.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}
	user, err := uc.users.FindByID(ctx, userID)
	if apperror.IsNotFound(err) {
		return nil, apperror.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.ErrUnauthorized
	}
	return uc.tokens.GeneratePair(user)
}

type CreateAdminUseCase struct {
	tx       repository.Transactor
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

func NewCreateAdminUseCase(tx repository.Transactor, users repository.UserRepository, profiles repository.ProfileRepository) *CreateAdminUseCase {
	return &CreateAdminUseCase{tx: tx, users: users, profiles: profiles}
}

// Execute создаёт администратора с входом по email и паролю.
func (uc *CreateAdminUseCase) Execute(ctx context.Context, phone, email, password string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, apperror.Validation("phone", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Validation("email", err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, apperror.Validation("password", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось обработать пароль")
	}
	now := time.Now().UTC()
	user := entity.NewUser(phone, valueobject.RoleAdmin, now)
	hashed := string(hash)
	user.Email = &email
	user.PasswordHash = &hashed

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.users.Create(ctx, user); err != nil {
			return err
		}
		return uc.profiles.Create(ctx, entity.NewProfile(user.ID, now))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
