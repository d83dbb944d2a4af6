package postgres

import (
	"database/sql"

	"citycar-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.CarRepository
	repository.LeaseRepository
	repository.UserRepository
	repository.WebhookEventRepository
	repository.AuditRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		CarRepository:          NewCarRepository(db),
		LeaseRepository:        NewLeaseRepository(db),
		UserRepository:         NewUserRepository(db),
		WebhookEventRepository: NewWebhookEventRepository(db),
		AuditRepository:        NewAuditRepository(db),
	}
}
