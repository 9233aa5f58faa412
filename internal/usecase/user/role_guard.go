package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

// RoleSwitchCheck: результат проверки смены роли.
type RoleSwitchCheck struct {
	Allowed       bool
	Reason        string
	ConflictCount int
	Conflicts     []entity.JobConflict
}

func allowed(reason string) *RoleSwitchCheck {
	return &RoleSwitchCheck{Allowed: true, Reason: reason, Conflicts: []entity.JobConflict{}}
}

// checkRoleSwitch ищет незавершённые обязательства, которые мешают сменить роль.
func checkRoleSwitch(ctx context.Context, jobs repository.JobRepository, user *entity.User, requested valueobject.Role) (*RoleSwitchCheck, error) {
	if user.Role == requested {
		return allowed("роль не меняется"), nil
	}

	var (
		conflicts []entity.JobConflict
		reason    string
		err       error
	)
	switch {
	case user.Role == valueobject.RoleClient && requested == valueobject.RoleFreelancer:
		conflicts, err = jobs.FindClientConflicts(ctx, user.ID)
		reason = "есть открытые задания: закройте или удалите их перед сменой роли"
	case user.Role == valueobject.RoleFreelancer && requested == valueobject.RoleClient:
		conflicts, err = jobs.FindFreelancerConflicts(ctx, user.ID)
		reason = "есть незавершённые задания в работе"
	default:
		return allowed("смена роли разрешена"), nil
	}
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		return allowed("смена роли разрешена"), nil
	}
	return &RoleSwitchCheck{
		Reason:        fmt.Sprintf("%s (%d)", reason, len(conflicts)),
		ConflictCount: len(conflicts),
		Conflicts:     conflicts,
	}, nil
}

func requestedRole(value string) (valueobject.Role, error) {
	role, err := valueobject.NewRole(value)
	if err != nil {
		return "", err
	}
	if role == valueobject.RoleAdmin {
		return "", apperror.New(apperror.ErrCodeForbidden, "роль администратора нельзя выбрать самостоятельно")
	}
	return role, nil
}

func roleConflict(check *RoleSwitchCheck) error {
	return apperror.New(apperror.ErrCodeRoleConflict, check.Reason).
		WithDetail("conflict_count", check.ConflictCount).
		WithDetail("conflicts", check.Conflicts)
}

type ValidateRoleSwitchUseCase struct {
	users repository.UserRepository
	jobs  repository.JobRepository
}

func NewValidateRoleSwitchUseCase(users repository.UserRepository, jobs repository.JobRepository) *ValidateRoleSwitchUseCase {
	return &ValidateRoleSwitchUseCase{users: users, jobs: jobs}
}

// Execute проверяет смену роли без блокировок. Новый телефон всегда разрешён.
func (uc *ValidateRoleSwitchUseCase) Execute(ctx context.Context, phone, role string) (*RoleSwitchCheck, error) {
	requested, err := requestedRole(role)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.FindByPhone(ctx, phone)
	if apperror.IsNotFound(err) {
		return allowed("новый пользователь"), nil
	}
	if err != nil {
		return nil, err
	}
	return uc.check(ctx, user, requested)
}

// ExecuteForUser: та же проверка для уже вошедшего пользователя.
func (uc *ValidateRoleSwitchUseCase) ExecuteForUser(ctx context.Context, userID uuid.UUID, role string) (*RoleSwitchCheck, error) {
	requested, err := requestedRole(role)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.check(ctx, user, requested)
}

func (uc *ValidateRoleSwitchUseCase) check(ctx context.Context, user *entity.User, requested valueobject.Role) (*RoleSwitchCheck, error) {
	if user.HasRole(valueobject.RoleAdmin) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "администратор не может сменить роль")
	}
	return checkRoleSwitch(ctx, uc.jobs, user, requested)
}

type SwitchRoleUseCase struct {
	tx       repository.Transactor
	users    repository.UserRepository
	jobs     repository.JobRepository
	notifier notification.Notifier
}

func NewSwitchRoleUseCase(tx repository.Transactor, users repository.UserRepository, jobs repository.JobRepository, notifier notification.Notifier) *SwitchRoleUseCase {
	return &SwitchRoleUseCase{tx: tx, users: users, jobs: jobs, notifier: notifier}
}

// Execute меняет роль под блокировкой строки пользователя. Создание заданий,
// отправка и принятие предложений берут разделяемую блокировку той же строки,
// поэтому между проверкой и записью новое обязательство появиться не может.
func (uc *SwitchRoleUseCase) Execute(ctx context.Context, userID uuid.UUID, role string) (*entity.User, error) {
	requested, err := requestedRole(role)
	if err != nil {
		return nil, err
	}

	var (
		updated  *entity.User
		previous valueobject.Role
	)
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := uc.users.Lock(ctx, userID, repository.LockUpdate)
		if err != nil {
			return err
		}
		if user.HasRole(valueobject.RoleAdmin) {
			return apperror.New(apperror.ErrCodeForbidden, "администратор не может сменить роль")
		}
		previous = user.Role
		if user.Role == requested {
			updated = user
			return nil
		}

		check, err := checkRoleSwitch(ctx, uc.jobs, user, requested)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return roleConflict(check)
		}

		ok, err := uc.users.UpdateRole(ctx, user.ID, requested, user.RoleVersion)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.New(apperror.ErrCodeConflict, "роль пользователя изменилась, повторите запрос")
		}
		updated, err = uc.users.FindByID(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if previous != updated.Role {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"from":    previous,
			"to":      updated.Role,
		}).Info("роль пользователя изменена")
		uc.notifier.Notify(ctx, userID, notification.EventRoleChanged, map[string]any{"role": updated.Role})
	}
	return updated, nil
}
