package notification

import (
	"context"
	"fmt"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

// PgInbox writes each notification and its recipient row into the inbox
// tables. Reading and marking them read belongs to the user-facing
// notification service.
type PgInbox struct {
	q db.TxBeginner
}

func NewPgInbox(q db.TxBeginner) *PgInbox {
	return &PgInbox{q: q}
}

func (s *PgInbox) NotifyUser(ctx context.Context, userID, title, message, eventType string) error {
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin inbox insert: %w", err)
	}
	defer tx.Rollback(ctx)

	var notificationID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO notifications (title, message, type, is_global, created_at)
		VALUES ($1, $2, $3, false, now())
		RETURNING id
	`, title, message, eventType).Scan(&notificationID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_notifications (user_id, notification_id, is_read)
		VALUES ($1, $2, false)
	`, userID, notificationID)
	if err != nil {
		return fmt.Errorf("insert user notification: %w", err)
	}

	return tx.Commit(ctx)
}
