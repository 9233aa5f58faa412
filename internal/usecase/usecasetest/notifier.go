package usecasetest

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Event struct {
	UserID uuid.UUID
	Name   string
	Data   any
}

// Notifier запоминает отправленные события.
type Notifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Event{UserID: userID, Name: event, Data: data})
}

func (n *Notifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

// Has сообщает, получал ли пользователь событие с таким именем.
func (n *Notifier) Has(userID uuid.UUID, event string) bool {
	for _, e := range n.Events() {
		if e.UserID == userID && e.Name == event {
			return true
		}
	}
	return false
}
