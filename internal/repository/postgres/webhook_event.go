package postgres

import (
	"context"
	"database/sql"
	"time"

	"citycar-backend/internal/repository"
)

type webhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) repository.WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Record inserts the delivery key and reports whether it was new. The unique
// constraint on (payment_intent_id, event_type) makes gateway redeliveries
// no-ops regardless of how many workers race on them.
func (r *webhookEventRepository) Record(ctx context.Context, intentID, eventType, eventID string) (bool, error) {
	query := `INSERT INTO webhook_events (payment_intent_id, event_type, event_id, received_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (payment_intent_id, event_type) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, intentID, eventType, eventID, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *webhookEventRepository) Remove(ctx context.Context, intentID, eventType string) error {
	query := `DELETE FROM webhook_events WHERE payment_intent_id = $1 AND event_type = $2`
	_, err := r.db.ExecContext(ctx, query, intentID, eventType)
	return err
}
