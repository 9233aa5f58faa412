package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/usecasetest"
)

type sent struct {
	userID uuid.UUID
	event  string
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (b *recordingBroadcaster) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, sent{userID: userID, event: event})
	return nil
}

func TestPublisher(t *testing.T) {
	b := &recordingBroadcaster{}
	userID := uuid.New()
	p := notification.NewPublisher(b)

	p.Notify(context.Background(), userID, notification.EventOfferReceived, nil)
	require.Len(t, b.sent, 1)
	assert.Equal(t, sent{userID: userID, event: notification.EventOfferReceived}, b.sent[0])

	// Ошибка транспорта не всплывает наружу.
	b.err = errors.New("hub stopped")
	p.Notify(context.Background(), userID, notification.EventWorkDone, nil)
	assert.Len(t, b.sent, 1)

	var nilPublisher *notification.Publisher
	nilPublisher.Notify(context.Background(), userID, notification.EventWorkDone, nil)
	notification.NewPublisher(nil).Notify(context.Background(), userID, notification.EventWorkDone, nil)
}

func TestSaverListAndMarkRead(t *testing.T) {
	store := usecasetest.NewStore()
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	saver := notification.NewSaver(store.Notifications())
	require.NoError(t, saver.CreateNotification(ctx, userID, notification.EventJobAssigned, map[string]any{"job_id": "j-1"}))
	require.NoError(t, saver.CreateNotification(ctx, userID, notification.EventPaymentCompleted, nil))
	require.NoError(t, saver.CreateNotification(ctx, other, notification.EventWorkDone, nil))

	err := saver.CreateNotification(ctx, userID, notification.EventWorkDone, map[string]any{"bad": make(chan int)})
	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))

	list := notification.NewListNotificationsUseCase(store.Notifications())
	out, err := list.Execute(ctx, userID, 20, 0)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 2, out.UnreadCount)

	var assigned map[string]any
	for _, n := range out.Items {
		if n.Event == notification.EventJobAssigned {
			require.NoError(t, json.Unmarshal(n.Payload, &assigned))
		}
	}
	assert.Equal(t, "j-1", assigned["job_id"])

	markRead := notification.NewMarkReadUseCase(store.Notifications())
	require.NoError(t, markRead.Execute(ctx, out.Items[0].ID, userID))

	// Чужое уведомление отметить нельзя.
	err = markRead.Execute(ctx, out.Items[1].ID, other)
	assert.True(t, apperror.IsNotFound(err))

	out, err = list.Execute(ctx, userID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.UnreadCount)
}
