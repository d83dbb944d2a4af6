package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/logger"
	"citycar-backend/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type carService struct {
	cars  repository.CarRepository
	audit repository.AuditRepository
	cache Cache
	log   *slog.Logger
}

func NewCarService(cars repository.CarRepository, audit repository.AuditRepository, cache Cache) CarService {
	return &carService{
		cars:  cars,
		audit: audit,
		cache: cache,
		log:   logger.WithService("car"),
	}
}

// ListCars serves the browse catalog, read-through cached per page.
func (s *carService) ListCars(ctx context.Context, page, pageSize int) ([]domain.Car, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if cars, total, hit, err := s.cache.GetCarPage(ctx, page, pageSize); err == nil && hit {
		return cars, total, nil
	} else if err != nil {
		s.log.Warn("car page cache read failed", "page", page, "error", err)
	}

	cars, total, err := s.cars.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := s.cache.SetCarPage(ctx, page, pageSize, cars, total); err != nil {
		s.log.Warn("car page cache write failed", "page", page, "error", err)
	}
	return cars, total, nil
}

func (s *carService) GetCar(ctx context.Context, id string) (*domain.Car, error) {
	if car, hit, err := s.cache.GetCar(ctx, id); err == nil && hit {
		return car, nil
	} else if err != nil {
		s.log.Warn("car cache read failed", "car", id, "error", err)
	}

	car, err := s.cars.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetCar(ctx, car); err != nil {
		s.log.Warn("car cache write failed", "car", id, "error", err)
	}
	return car, nil
}

func (s *carService) CreateCar(ctx context.Context, adminID string, car *domain.Car) error {
	if err := validateCar(car); err != nil {
		return err
	}
	if car.ID == "" {
		car.ID = uuid.NewString()
	}
	car.Available = true

	if err := s.cars.Create(ctx, car); err != nil {
		return err
	}
	if err := s.cache.InvalidateCar(ctx, car.ID); err != nil {
		s.log.Warn("car cache invalidation failed", "car", car.ID, "error", err)
	}
	s.auditLog(ctx, "carAdded", adminID, car.ID, car.Brand+" "+car.ModelName+" added to fleet")
	return nil
}

func (s *carService) UpdateCar(ctx context.Context, adminID string, car *domain.Car) error {
	if car.ID == "" {
		return domain.Validationf("car id is required")
	}
	if err := validateCar(car); err != nil {
		return err
	}

	if err := s.cars.Update(ctx, car); err != nil {
		return err
	}
	if err := s.cache.InvalidateCar(ctx, car.ID); err != nil {
		s.log.Warn("car cache invalidation failed", "car", car.ID, "error", err)
	}
	s.auditLog(ctx, "carUpdated", adminID, car.ID, car.Brand+" "+car.ModelName+" updated")
	return nil
}

func validateCar(car *domain.Car) error {
	if car.Brand == "" || car.ModelName == "" {
		return domain.Validationf("brand and model name are required")
	}
	if car.Year < 1950 || car.Year > time.Now().Year()+1 {
		return domain.Validationf("invalid year %d", car.Year)
	}
	if car.PricePerDayCents <= 0 {
		return domain.Validationf("price per day must be positive")
	}
	return nil
}

func (s *carService) auditLog(ctx context.Context, action, adminID, carID, description string) {
	entry := &domain.AuditEntry{
		Action:      action,
		UserID:      adminID,
		CarID:       carID,
		Description: description,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn("audit append failed", "action", action, "car", carID, "error", err)
	}
}
