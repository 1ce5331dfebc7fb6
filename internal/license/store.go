package license

import (
	"context"

	"licensedesk/internal/models"
)

// Filter selects licenses by equality on the populated fields. An empty
// field does not constrain the match.
type Filter struct {
	ClientID string
	Email    string
}

// Patch lists the columns an update writes; nil fields are left untouched.
type Patch struct {
	IsActive    *bool
	LastPayment *string
	ValidUntil  *string
}

// Store persists license records. Implementations report a missing record
// from FindOne as (nil, nil), a (client_id, email) uniqueness violation from
// InsertOne as ErrDuplicateActivation, and any I/O failure or timeout as
// ErrStoreUnavailable.
type Store interface {
	FindOne(ctx context.Context, f Filter) (*models.License, error)
	InsertOne(ctx context.Context, l *models.License) (uint, error)
	UpdateMany(ctx context.Context, f Filter, p Patch) (int64, error)
	// FindAll streams every record to fn in batches; a non-nil error from fn
	// stops the scan and is returned.
	FindAll(ctx context.Context, fn func(models.License) error) error
}

type Event struct {
	ClientID string
	Action   string
	Actor    string
	Metadata map[string]any
}

// EventLog keeps the audit trail of lifecycle operations.
type EventLog interface {
	Record(ctx context.Context, e Event) error
	ListByClient(ctx context.Context, clientID string, limit int) ([]models.AuditLog, error)
}

// Observer receives one call per finished operation, labelled with the
// operation name and its outcome.
type Observer interface {
	Observe(op, outcome string)
}

type actorKey struct{}

// WithActor tags ctx with the account performing lifecycle operations, for
// the audit trail.
func WithActor(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, actorKey{}, subject)
}

func actorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
