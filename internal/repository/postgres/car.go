package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/repository"
)

type carRepository struct {
	db *sql.DB
}

func NewCarRepository(db *sql.DB) repository.CarRepository {
	return &carRepository{db: db}
}

const carColumns = `id, brand, model_name, year, color, passengers, doors, fuel_type, transmission, price_per_day_cents, available, description, created_at, updated_at`

func (r *carRepository) Create(ctx context.Context, c *domain.Car) error {
	query := `INSERT INTO cars (id, brand, model_name, year, color, passengers, doors, fuel_type, transmission, price_per_day_cents, available, description, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Brand, c.ModelName, c.Year, c.Color, c.Passengers, c.Doors,
		c.FuelType, c.Transmission, c.PricePerDayCents, c.Available, c.Description, now, now)
	return err
}

func (r *carRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	c := &domain.Car{}
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Brand, &c.ModelName, &c.Year, &c.Color, &c.Passengers, &c.Doors,
		&c.FuelType, &c.Transmission, &c.PricePerDayCents, &c.Available, &c.Description,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *carRepository) Update(ctx context.Context, c *domain.Car) error {
	query := `UPDATE cars SET brand=$1, model_name=$2, year=$3, color=$4, passengers=$5, doors=$6,
	          fuel_type=$7, transmission=$8, price_per_day_cents=$9, available=$10, description=$11, updated_at=$12
	          WHERE id=$13`
	res, err := r.db.ExecContext(ctx, query,
		c.Brand, c.ModelName, c.Year, c.Color, c.Passengers, c.Doors,
		c.FuelType, c.Transmission, c.PricePerDayCents, c.Available, c.Description, time.Now(), c.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *carRepository) List(ctx context.Context, page, pageSize int) ([]domain.Car, int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM cars`).Scan(&count); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + carColumns + ` FROM cars ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cars []domain.Car
	for rows.Next() {
		var c domain.Car
		if err := rows.Scan(
			&c.ID, &c.Brand, &c.ModelName, &c.Year, &c.Color, &c.Passengers, &c.Doors,
			&c.FuelType, &c.Transmission, &c.PricePerDayCents, &c.Available, &c.Description,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		cars = append(cars, c)
	}
	return cars, count, rows.Err()
}

// Reserve flips available only when it is still true at write time. The
// condition in the UPDATE, not a prior read, is what loses the race for the
// second of two concurrent bookings.
func (r *carRepository) Reserve(ctx context.Context, id string) (bool, error) {
	query := `UPDATE cars SET available = false, updated_at = $1 WHERE id = $2 AND available = true`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *carRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	query := `UPDATE cars SET available = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, available, time.Now(), id)
	return err
}
