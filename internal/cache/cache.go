// Package cache is a strictly-invalidate-on-write layer in front of the
// persistent store's query path. Entries are advisory, never authoritative;
// every mutation path drops the affected keys and readers fall back to
// postgres on a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"citycar-backend/internal/domain"
)

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func carKey(id string) string { return "carDetails:" + id }
func carPageKey(page, limit int) string {
	return fmt.Sprintf("cars:page:%d:limit:%d", page, limit)
}
func leaseKey(id string) string { return "leaseDetails:" + id }
func userLeasesKey(userID string) string { return "leases:" + userID }
func paymentHistoryKey(userID string) string { return "leasePaymentHistory:" + userID }

func (s *Store) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry is dropped, not served.
		_ = s.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

func (s *Store) GetCar(ctx context.Context, id string) (*domain.Car, bool, error) {
	var car domain.Car
	hit, err := s.getJSON(ctx, carKey(id), &car)
	if err != nil || !hit {
		return nil, false, err
	}
	return &car, true, nil
}

func (s *Store) SetCar(ctx context.Context, car *domain.Car) error {
	return s.setJSON(ctx, carKey(car.ID), car)
}

// carPage is the cached shape of one page of the car list.
type carPage struct {
	Cars  []domain.Car `json:"cars"`
	Total int          `json:"total"`
}

func (s *Store) GetCarPage(ctx context.Context, page, limit int) ([]domain.Car, int, bool, error) {
	var p carPage
	hit, err := s.getJSON(ctx, carPageKey(page, limit), &p)
	if err != nil || !hit {
		return nil, 0, false, err
	}
	return p.Cars, p.Total, true, nil
}

func (s *Store) SetCarPage(ctx context.Context, page, limit int, cars []domain.Car, total int) error {
	return s.setJSON(ctx, carPageKey(page, limit), carPage{Cars: cars, Total: total})
}

func (s *Store) GetLease(ctx context.Context, id string) (*domain.Lease, bool, error) {
	var lease domain.Lease
	hit, err := s.getJSON(ctx, leaseKey(id), &lease)
	if err != nil || !hit {
		return nil, false, err
	}
	return &lease, true, nil
}

func (s *Store) SetLease(ctx context.Context, lease *domain.Lease) error {
	return s.setJSON(ctx, leaseKey(lease.ID), lease)
}

func (s *Store) GetUserLeases(ctx context.Context, userID string) ([]domain.Lease, bool, error) {
	var leases []domain.Lease
	hit, err := s.getJSON(ctx, userLeasesKey(userID), &leases)
	if err != nil || !hit {
		return nil, false, err
	}
	return leases, true, nil
}

func (s *Store) SetUserLeases(ctx context.Context, userID string, leases []domain.Lease) error {
	return s.setJSON(ctx, userLeasesKey(userID), leases)
}

func (s *Store) GetPaymentHistory(ctx context.Context, userID string) ([]domain.PaymentRecord, bool, error) {
	var records []domain.PaymentRecord
	hit, err := s.getJSON(ctx, paymentHistoryKey(userID), &records)
	if err != nil || !hit {
		return nil, false, err
	}
	return records, true, nil
}

func (s *Store) SetPaymentHistory(ctx context.Context, userID string, records []domain.PaymentRecord) error {
	return s.setJSON(ctx, paymentHistoryKey(userID), records)
}

// InvalidateCar drops the car's detail entry and every cached list page that
// could contain it.
func (s *Store) InvalidateCar(ctx context.Context, carID string) error {
	if err := s.client.Del(ctx, carKey(carID)).Err(); err != nil {
		return err
	}
	return s.deletePattern(ctx, "cars:page:*")
}

// InvalidateLease drops the lease's detail entry and the owning user's
// cached lease list and payment history.
func (s *Store) InvalidateLease(ctx context.Context, leaseID, userID string) error {
	return s.client.Del(ctx,
		leaseKey(leaseID),
		userLeasesKey(userID),
		paymentHistoryKey(userID),
	).Err()
}

func (s *Store) deletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
