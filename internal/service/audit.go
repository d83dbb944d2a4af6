package service

import (
	"context"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/repository"
)

type auditService struct {
	audit repository.AuditRepository
}

func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) ListActivity(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.audit.List(ctx, limit, offset)
}
