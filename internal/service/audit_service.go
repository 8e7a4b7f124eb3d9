package service

import (
	"context"
	"encoding/json"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditService records who did what and whether it was allowed. Record is
// fire-and-forget: a failed write is logged and dropped, it must never block
// or fail the request being recorded.
type AuditService interface {
	Record(entry *model.AuditLog)
	RecordAction(tenantID, userID *uuid.UUID, action, entityID string, details any)
	List(ctx context.Context, tenantID uuid.UUID, action string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo    repository.AuditRepository
	timeout time.Duration
}

// NewAuditService returns a new instance of AuditService
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo, timeout: 5 * time.Second}
}

func (s *auditService) Record(entry *model.AuditLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.repo.Create(ctx, entry); err != nil {
			logrus.WithError(err).WithField("action", entry.Action).
				Warn("audit write failed")
		}
	}()
}

// RecordAction records an allowed, security-relevant mutation with a JSON
// details payload.
func (s *auditService) RecordAction(tenantID, userID *uuid.UUID, action, entityID string, details any) {
	entry := &model.AuditLog{
		TenantID: tenantID,
		UserID:   userID,
		Action:   action,
		EntityID: entityID,
		Allowed:  true,
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = string(b)
		}
	}
	s.Record(entry)
}

func (s *auditService) List(ctx context.Context, tenantID uuid.UUID, action string, page, limit int) ([]model.AuditLog, int64, error) {
	return s.repo.List(ctx, tenantID, action, page, limit)
}
