package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"licensedesk/internal/config"
	"licensedesk/internal/license"
	"licensedesk/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func sampleLicense(clientID, email, validUntil string, active bool) *models.License {
	return &models.License{
		ClientID:    clientID,
		ClientName:  "Client " + clientID,
		Email:       email,
		MachineID:   uuid.NewString(),
		Duration:    30,
		LastPayment: "2025-01-01",
		ValidUntil:  validUntil,
		IsActive:    active,
	}
}

func TestLicenseStore_InsertAndFind(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	ctx := context.Background()

	id, err := s.InsertOne(ctx, sampleLicense("C1", "a@x.com", "2025-01-31", true))
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := s.FindOne(ctx, license.Filter{ClientID: "C1", Email: "a@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-01-01", got.LastPayment)
	assert.Equal(t, "2025-01-31", got.ValidUntil)
	assert.True(t, got.IsActive)

	missing, err := s.FindOne(ctx, license.Filter{ClientID: "C2"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLicenseStore_DateRoundTrip(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	ctx := context.Background()

	l := sampleLicense("C1", "a@x.com", "2025-01-15", true)
	l.LastPayment = "2025-01-15"
	_, err := s.InsertOne(ctx, l)
	require.NoError(t, err)

	got, err := s.FindOne(ctx, license.Filter{ClientID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", got.ValidUntil)

	parsed, err := license.ParseDate(got.ValidUntil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", license.FormatDate(parsed))
}

func TestLicenseStore_UniqueIndexReportsDuplicate(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	ctx := context.Background()

	_, err := s.InsertOne(ctx, sampleLicense("C1", "a@x.com", "2025-01-31", true))
	require.NoError(t, err)

	_, err = s.InsertOne(ctx, sampleLicense("C1", "a@x.com", "2026-01-31", true))
	require.Error(t, err)
	assert.ErrorIs(t, err, license.ErrDuplicateActivation)

	_, err = s.InsertOne(ctx, sampleLicense("C1", "b@x.com", "2025-01-31", true))
	assert.NoError(t, err)
}

func TestLicenseStore_UpdateManyCountsMatches(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com"} {
		_, err := s.InsertOne(ctx, sampleLicense("C1", email, "2025-01-31", true))
		require.NoError(t, err)
	}
	_, err := s.InsertOne(ctx, sampleLicense("C2", "a@x.com", "2025-01-31", true))
	require.NoError(t, err)

	inactive := false
	n, err := s.UpdateMany(ctx, license.Filter{ClientID: "C1"}, license.Patch{IsActive: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.UpdateMany(ctx, license.Filter{ClientID: "C1"}, license.Patch{IsActive: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "already-inactive rows still count as matched")

	other, err := s.FindOne(ctx, license.Filter{ClientID: "C2"})
	require.NoError(t, err)
	assert.True(t, other.IsActive)

	n, err = s.UpdateMany(ctx, license.Filter{ClientID: "nope"}, license.Patch{IsActive: &inactive})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLicenseStore_UpdateManyWritesDates(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	ctx := context.Background()
	_, err := s.InsertOne(ctx, sampleLicense("C1", "a@x.com", "2025-01-31", false))
	require.NoError(t, err)

	active := true
	last, until := "2025-03-01", "2025-03-31"
	n, err := s.UpdateMany(ctx, license.Filter{ClientID: "C1", Email: "a@x.com"}, license.Patch{
		IsActive: &active, LastPayment: &last, ValidUntil: &until,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.FindOne(ctx, license.Filter{ClientID: "C1"})
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, last, got.LastPayment)
	assert.Equal(t, until, got.ValidUntil)
}

func TestLicenseStore_UpdateManyRequiresFilter(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	inactive := false

	_, err := s.UpdateMany(context.Background(), license.Filter{}, license.Patch{IsActive: &inactive})
	assert.ErrorIs(t, err, license.ErrInvalidInput)
}

func TestLicenseStore_FindAllBatchesAndRestarts(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.InsertOne(ctx, sampleLicense(fmt.Sprintf("C%d", i), "a@x.com", "2025-01-31", true))
		require.NoError(t, err)
	}

	for pass := 0; pass < 2; pass++ {
		var seen []string
		err := s.FindAll(ctx, func(l models.License) error {
			seen = append(seen, l.ClientID)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"C0", "C1", "C2", "C3", "C4"}, seen)
	}
}

func TestLicenseStore_FindAllStopsOnCallbackError(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.InsertOne(ctx, sampleLicense(fmt.Sprintf("C%d", i), "a@x.com", "2025-01-31", true))
		require.NoError(t, err)
	}

	stop := errors.New("stop")
	calls := 0
	err := s.FindAll(ctx, func(models.License) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestLicenseStore_CanceledContextIsUnavailable(t *testing.T) {
	s := NewLicenseStore(newTestDB(t), time.Second, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindOne(ctx, license.Filter{ClientID: "C1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, license.ErrStoreUnavailable)
	assert.False(t, errors.Is(err, license.ErrNotFound))
}

func TestAuditStore_RecordAndList(t *testing.T) {
	a := NewAuditStore(newTestDB(t), time.Second)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, license.Event{ClientID: "C1", Action: license.ActionActivate, Actor: "u1", Metadata: map[string]any{"email": "a@x.com"}}))
	require.NoError(t, a.Record(ctx, license.Event{ClientID: "C1", Action: license.ActionDeactivate}))
	require.NoError(t, a.Record(ctx, license.Event{ClientID: "C2", Action: license.ActionActivate}))

	logs, err := a.ListByClient(ctx, "C1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, license.ActionDeactivate, logs[0].Action)
	assert.Equal(t, license.ActionActivate, logs[1].Action)
	require.NotNil(t, logs[1].UserID)
	assert.Equal(t, "u1", *logs[1].UserID)
	assert.JSONEq(t, `{"email":"a@x.com"}`, string(logs[1].Metadata))
	assert.JSONEq(t, `{}`, string(logs[0].Metadata))
}
