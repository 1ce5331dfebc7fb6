package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"licensedesk/internal/license"
	"licensedesk/internal/models"
)

// AuditStore keeps license lifecycle events in audit_logs.
type AuditStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewAuditStore(db *gorm.DB, timeout time.Duration) *AuditStore {
	return &AuditStore{db: db, timeout: timeout}
}

var _ license.EventLog = (*AuditStore)(nil)

func (s *AuditStore) Record(ctx context.Context, e license.Event) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row := models.AuditLog{
		ClientID:  e.ClientID,
		Action:    e.Action,
		Metadata:  models.NewJSONB(e.Metadata),
		CreatedAt: time.Now().UTC(),
	}
	if e.Actor != "" {
		actor := e.Actor
		row.UserID = &actor
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable(err, "record audit event")
	}
	return nil
}

func (s *AuditStore) ListByClient(ctx context.Context, clientID string, limit int) ([]models.AuditLog, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	logs := []models.AuditLog{}
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, unavailable(err, "list audit events")
	}
	return logs, nil
}
