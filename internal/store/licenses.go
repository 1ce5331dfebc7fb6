package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"licensedesk/internal/apperr"
	"licensedesk/internal/license"
	"licensedesk/internal/models"
)

const defaultBatchSize = 200

// LicenseStore implements license.Store on GORM.
type LicenseStore struct {
	db        *gorm.DB
	timeout   time.Duration
	batchSize int
}

func NewLicenseStore(db *gorm.DB, timeout time.Duration, batchSize int) *LicenseStore {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &LicenseStore{db: db, timeout: timeout, batchSize: batchSize}
}

var _ license.Store = (*LicenseStore)(nil)

func (s *LicenseStore) FindOne(ctx context.Context, f license.Filter) (*models.License, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var l models.License
	err := scope(s.db.WithContext(ctx), f).Order("id").Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, "find license")
	}
	return &l, nil
}

func (s *LicenseStore) InsertOne(ctx context.Context, l *models.License) (uint, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return 0, apperr.Wrap(apperr.CodeDuplicateActivation, err, "License already activated")
		}
		return 0, unavailable(err, "insert license")
	}
	return l.ID, nil
}

// UpdateMany applies p to every row matching f in one statement and returns
// the number of matched rows.
func (s *LicenseStore) UpdateMany(ctx context.Context, f license.Filter, p license.Patch) (int64, error) {
	if f.ClientID == "" && f.Email == "" {
		return 0, apperr.New(apperr.CodeValidation, "update requires a filter")
	}
	cols := map[string]any{}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.LastPayment != nil {
		cols["last_payment"] = *p.LastPayment
	}
	if p.ValidUntil != nil {
		cols["valid_until"] = *p.ValidUntil
	}
	if len(cols) == 0 {
		return 0, apperr.New(apperr.CodeValidation, "update requires at least one column")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res := scope(s.db.WithContext(ctx).Model(&models.License{}), f).Updates(cols)
	if res.Error != nil {
		return 0, unavailable(res.Error, "update license")
	}
	return res.RowsAffected, nil
}

// FindAll walks the table in primary-key order, one batch per query. Each
// call starts a fresh scan.
func (s *LicenseStore) FindAll(ctx context.Context, fn func(models.License) error) error {
	var (
		batch []models.License
		fnErr error
	)
	res := s.db.WithContext(ctx).FindInBatches(&batch, s.batchSize, func(tx *gorm.DB, _ int) error {
		for _, l := range batch {
			if err := fn(l); err != nil {
				fnErr = err
				return err
			}
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if res.Error != nil {
		return unavailable(res.Error, "list licenses")
	}
	return nil
}

func scope(db *gorm.DB, f license.Filter) *gorm.DB {
	if f.ClientID != "" {
		db = db.Where("client_id = ?", f.ClientID)
	}
	if f.Email != "" {
		db = db.Where("email = ?", f.Email)
	}
	return db
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func unavailable(err error, op string) error {
	return apperr.Wrap(apperr.CodeStoreUnavailable, err, op)
}
