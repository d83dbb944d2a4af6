package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, email, is_admin, created_at) VALUES ($1, $2, $3, $4, $5)`
	u.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.IsAdmin, u.CreatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, name, email, is_admin, created_at FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
