package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
)

type NotificationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewNotificationRepositoryAdapter(db *sqlx.DB) *NotificationRepositoryAdapter {
	return &NotificationRepositoryAdapter{db: db}
}

func (r *NotificationRepositoryAdapter) Create(ctx context.Context, n *entity.Notification) error {
	payload := n.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	query := `INSERT INTO notifications (id, user_id, event, payload, is_read, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, n.ID, n.UserID, n.Event, []byte(payload), n.IsRead, n.CreatedAt); err != nil {
		return dbError(err, "не удалось сохранить уведомление")
	}
	return nil
}

func (r *NotificationRepositoryAdapter) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	limit, offset = normalizePage(limit, offset)
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		UserID    uuid.UUID `db:"user_id"`
		Event     string    `db:"event"`
		Payload   []byte    `db:"payload"`
		IsRead    bool      `db:"is_read"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := `
		SELECT id, user_id, event, payload, is_read, created_at FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, dbError(err, "не удалось получить уведомления")
	}
	result := make([]*entity.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, &entity.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Event:     row.Event,
			Payload:   json.RawMessage(row.Payload),
			IsRead:    row.IsRead,
			CreatedAt: row.CreatedAt,
		})
	}
	return result, nil
}

func (r *NotificationRepositoryAdapter) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID); err != nil {
		return 0, dbError(err, "не удалось посчитать уведомления")
	}
	return count, nil
}

func (r *NotificationRepositoryAdapter) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	return affected(res, err, "не удалось отметить уведомление")
}
