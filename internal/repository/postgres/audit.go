package postgres

import (
	"context"
	"database/sql"
	"time"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/repository"

	"github.com/google/uuid"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now()
	query := `INSERT INTO audit_log (id, action, user_id, lease_id, car_id, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Action, e.UserID, nullable(e.LeaseID), nullable(e.CarID), e.Description, e.CreatedAt)
	return err
}

func (r *auditRepository) List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	query := `SELECT id, action, user_id, COALESCE(lease_id, ''), COALESCE(car_id, ''), description, created_at
	          FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.LeaseID, &e.CarID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
