package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

// Имена событий реального времени.
const (
	EventOfferReceived      = "offer_received"
	EventOfferUpdated       = "offer_updated"
	EventOfferAccepted      = "offer_accepted"
	EventOfferRejected      = "offer_rejected"
	EventOfferWithdrawn     = "offer_withdrawn"
	EventJobAssigned        = "job_assigned"
	EventJobCancelled       = "job_cancelled"
	EventWorkDone           = "work_done"
	EventPaymentCompleted   = "payment_completed"
	EventPaymentFailed      = "payment_failed"
	EventWithdrawalResolved = "withdrawal_resolved"
	EventRoleChanged        = "role_changed"
)

// Notifier доставляет событие пользователю. Ошибки доставки не влияют на
// результат операции, поэтому Notify ничего не возвращает.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data any)
}

// Broadcaster: транспорт реального времени (WebSocket хаб).
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// Publisher отправляет события через Broadcaster и логирует сбои.
type Publisher struct {
	broadcaster Broadcaster
}

func NewPublisher(broadcaster Broadcaster) *Publisher {
	return &Publisher{broadcaster: broadcaster}
}

func (p *Publisher) Notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	if p == nil || p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
		}).WithError(err).Warn("не удалось отправить уведомление")
	}
}

// Saver сохраняет копию события в БД. Используется хабом как NotificationSaver.
type Saver struct {
	repo repository.NotificationRepository
}

func NewSaver(repo repository.NotificationRepository) *Saver {
	return &Saver{repo: repo}
}

func (s *Saver) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать уведомление")
	}
	return s.repo.Create(ctx, &entity.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Event:     event,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
}

type ListNotificationsOutput struct {
	Items       []*entity.Notification
	UnreadCount int
}

type ListNotificationsUseCase struct {
	repo repository.NotificationRepository
}

func NewListNotificationsUseCase(repo repository.NotificationRepository) *ListNotificationsUseCase {
	return &ListNotificationsUseCase{repo: repo}
}

func (uc *ListNotificationsUseCase) Execute(ctx context.Context, userID uuid.UUID, limit, offset int) (*ListNotificationsOutput, error) {
	items, err := uc.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := uc.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListNotificationsOutput{Items: items, UnreadCount: unread}, nil
}

type MarkReadUseCase struct {
	repo repository.NotificationRepository
}

func NewMarkReadUseCase(repo repository.NotificationRepository) *MarkReadUseCase {
	return &MarkReadUseCase{repo: repo}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, id, userID uuid.UUID) error {
	ok, err := uc.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	return nil
}
