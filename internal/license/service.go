package license

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"licensedesk/internal/apperr"
	"licensedesk/internal/models"
)

// ReactivationDays is the fixed window granted by Reactivate, independent of
// the duration requested at activation.
const ReactivationDays = 30

// MaxDurationDays caps the window requested at activation.
const MaxDurationDays = 36500

// maxYear is the last year a YYYY-MM-DD date can carry.
const maxYear = 9999

const (
	ActionActivate   = "license.activate"
	ActionDeactivate = "license.deactivate"
	ActionReactivate = "license.reactivate"

	historyLimit = 200
)

type PasswordHasher func(plain string) (string, error)

type Dependencies struct {
	Store    Store
	Events   EventLog
	Clock    Clock
	IDs      IDGenerator
	Hasher   PasswordHasher
	Observer Observer
	Logger   *zap.SugaredLogger
}

type Service struct {
	store    Store
	events   EventLog
	clock    Clock
	ids      IDGenerator
	hasher   PasswordHasher
	observer Observer
	lg       *zap.SugaredLogger
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("license store required")
	}
	if deps.Hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	s := &Service{
		store:    deps.Store,
		events:   deps.Events,
		clock:    deps.Clock,
		ids:      deps.IDs,
		hasher:   deps.Hasher,
		observer: deps.Observer,
		lg:       deps.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.ids == nil {
		s.ids = UUIDGenerator{}
	}
	if s.lg == nil {
		s.lg = zap.NewNop().Sugar()
	}
	return s, nil
}

type ActivateInput struct {
	ClientName    string
	Email         string
	ClientID      string
	TransactionID string
	DurationDays  int
	Password      string
}

func (in *ActivateInput) normalize() {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.TransactionID = strings.TrimSpace(in.TransactionID)
}

func (in ActivateInput) validate() error {
	if in.ClientID == "" {
		return apperr.New(apperr.CodeValidation, "client_id is required")
	}
	if in.Email == "" {
		return apperr.New(apperr.CodeValidation, "email is required")
	}
	if in.DurationDays <= 0 {
		return apperr.New(apperr.CodeValidation, "duration must be a positive number of days")
	}
	if in.DurationDays > MaxDurationDays {
		return apperr.New(apperr.CodeValidation, fmt.Sprintf("duration must be at most %d days", MaxDurationDays))
	}
	return nil
}

// ActivateResult carries the stored record. AlreadyExisted is set when the
// (client_id, email) pair was activated before; the record is then returned
// exactly as stored.
type ActivateResult struct {
	License        models.License
	Status         Status
	AlreadyExisted bool
}

// Activate creates a license for a new (client_id, email) pair. The machine id
// is minted only when a record is about to be created, so an existing binding
// is never replaced.
func (s *Service) Activate(ctx context.Context, in ActivateInput) (res ActivateResult, err error) {
	defer func() { s.observe("activate", res.AlreadyExisted, err) }()

	in.normalize()
	if err := in.validate(); err != nil {
		return ActivateResult{}, err
	}
	today := DateOf(s.clock.Now())
	until := AddDays(today, in.DurationDays)
	if until.Year() > maxYear {
		return ActivateResult{}, apperr.New(apperr.CodeValidation, "duration runs past the last representable date")
	}
	key := Filter{ClientID: in.ClientID, Email: in.Email}

	existing, err := s.store.FindOne(ctx, key)
	if err != nil {
		return ActivateResult{}, err
	}
	if existing != nil {
		return s.activated(*existing, true), nil
	}

	password := ""
	if in.Password != "" {
		password, err = s.hasher(in.Password)
		if err != nil {
			return ActivateResult{}, apperr.Wrap(apperr.CodeInternal, err, "hash license password")
		}
	}

	rec := models.License{
		ClientID:      in.ClientID,
		ClientName:    in.ClientName,
		Email:         in.Email,
		TransactionID: in.TransactionID,
		MachineID:     s.ids.NewMachineID(),
		Duration:      in.DurationDays,
		Password:      password,
		LastPayment:   FormatDate(today),
		ValidUntil:    FormatDate(until),
		IsActive:      true,
	}
	if _, err := s.store.InsertOne(ctx, &rec); err != nil {
		if !errors.Is(err, ErrDuplicateActivation) {
			return ActivateResult{}, err
		}
		// Lost an insert race on the unique index; report the winner.
		winner, ferr := s.store.FindOne(ctx, key)
		if ferr != nil {
			return ActivateResult{}, ferr
		}
		if winner == nil {
			return ActivateResult{}, err
		}
		return s.activated(*winner, true), nil
	}

	s.record(ctx, Event{
		ClientID: rec.ClientID,
		Action:   ActionActivate,
		Metadata: map[string]any{
			"email":          rec.Email,
			"machine_id":     rec.MachineID,
			"duration":       rec.Duration,
			"transaction_id": rec.TransactionID,
			"valid_until":    rec.ValidUntil,
		},
	})
	return s.activated(rec, false), nil
}

func (s *Service) activated(l models.License, existed bool) ActivateResult {
	return ActivateResult{License: l, Status: StatusOf(l, s.clock.Now()), AlreadyExisted: existed}
}

// Deactivate clears the administrative flag on every license matching f and
// leaves the dates alone. Deactivating an inactive license succeeds.
func (s *Service) Deactivate(ctx context.Context, f Filter) (matched int64, err error) {
	defer func() { s.observe("deactivate", false, err) }()

	f = normalizeFilter(f)
	if f.ClientID == "" {
		return 0, apperr.New(apperr.CodeValidation, "client_id is required")
	}
	inactive := false
	matched, err = s.store.UpdateMany(ctx, f, Patch{IsActive: &inactive})
	if err != nil {
		return 0, err
	}
	if matched == 0 {
		return 0, ErrNotFound
	}
	s.record(ctx, Event{
		ClientID: f.ClientID,
		Action:   ActionDeactivate,
		Metadata: map[string]any{"email": f.Email, "matched": matched},
	})
	return matched, nil
}

type ReactivateResult struct {
	Matched     int64
	LastPayment string
	ValidUntil  string
}

// Reactivate sets the flag and re-anchors the window on today, so repeated
// calls never stack extra days.
func (s *Service) Reactivate(ctx context.Context, f Filter) (res ReactivateResult, err error) {
	defer func() { s.observe("reactivate", false, err) }()

	f = normalizeFilter(f)
	if f.ClientID == "" {
		return ReactivateResult{}, apperr.New(apperr.CodeValidation, "client_id is required")
	}
	today := DateOf(s.clock.Now())
	active := true
	lastPayment := FormatDate(today)
	validUntil := FormatDate(AddDays(today, ReactivationDays))

	matched, err := s.store.UpdateMany(ctx, f, Patch{
		IsActive:    &active,
		LastPayment: &lastPayment,
		ValidUntil:  &validUntil,
	})
	if err != nil {
		return ReactivateResult{}, err
	}
	if matched == 0 {
		return ReactivateResult{}, ErrNotFound
	}
	s.record(ctx, Event{
		ClientID: f.ClientID,
		Action:   ActionReactivate,
		Metadata: map[string]any{"email": f.Email, "matched": matched, "valid_until": validUntil},
	})
	return ReactivateResult{Matched: matched, LastPayment: lastPayment, ValidUntil: validUntil}, nil
}

type CheckResult struct {
	ClientID   string
	Email      string
	Status     Status
	ValidUntil string
}

// CheckLicense answers whether the license matching f may be used today.
func (s *Service) CheckLicense(ctx context.Context, f Filter) (res CheckResult, err error) {
	defer func() { s.observe("check", false, err) }()

	f = normalizeFilter(f)
	if f.ClientID == "" {
		return CheckResult{}, apperr.New(apperr.CodeValidation, "License key required")
	}
	rec, err := s.store.FindOne(ctx, f)
	if err != nil {
		return CheckResult{}, err
	}
	if rec == nil {
		return CheckResult{}, ErrNotFound
	}

	status := StatusOf(*rec, s.clock.Now())
	switch status {
	case StatusInvalid:
		return CheckResult{}, ErrInvalidRecord
	case StatusInactive:
		return CheckResult{}, ErrInactive
	case StatusExpired:
		return CheckResult{}, ErrExpired
	}

	until, _ := ParseDate(rec.ValidUntil)
	return CheckResult{
		ClientID:   rec.ClientID,
		Email:      rec.Email,
		Status:     status,
		ValidUntil: FormatDate(until),
	}, nil
}

type LicenseView struct {
	models.License
	Status Status `json:"status"`
}

type ListResult struct {
	Licenses []LicenseView
	Counts   map[Status]int
}

// ListWithStatus annotates every stored license with its status as of now.
// Records with unreadable dates are listed as Invalid rather than failing the
// whole listing.
func (s *Service) ListWithStatus(ctx context.Context) (res ListResult, err error) {
	defer func() { s.observe("list", false, err) }()

	now := s.clock.Now()
	res = ListResult{
		Licenses: []LicenseView{},
		Counts: map[Status]int{
			StatusActive:   0,
			StatusExpired:  0,
			StatusInactive: 0,
			StatusInvalid:  0,
		},
	}
	err = s.store.FindAll(ctx, func(l models.License) error {
		view := LicenseView{License: l, Status: StatusOf(l, now)}
		res.Licenses = append(res.Licenses, view)
		res.Counts[view.Status]++
		return nil
	})
	if err != nil {
		return ListResult{}, err
	}
	return res, nil
}

// History returns the most recent lifecycle events for a client, newest first.
func (s *Service) History(ctx context.Context, clientID string) ([]models.AuditLog, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, apperr.New(apperr.CodeValidation, "client_id is required")
	}
	if s.events == nil {
		return []models.AuditLog{}, nil
	}
	return s.events.ListByClient(ctx, clientID, historyLimit)
}

func (s *Service) record(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	e.Actor = actorFrom(ctx)
	if err := s.events.Record(ctx, e); err != nil {
		s.lg.Warnw("audit record failed", "client_id", e.ClientID, "action", e.Action, "error", err)
	}
}

func (s *Service) observe(op string, duplicate bool, err error) {
	if s.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = strings.ToLower(string(apperr.CodeOf(err)))
	case duplicate:
		outcome = "already_existed"
	}
	s.observer.Observe(op, outcome)
}

func normalizeFilter(f Filter) Filter {
	return Filter{
		ClientID: strings.TrimSpace(f.ClientID),
		Email:    strings.ToLower(strings.TrimSpace(f.Email)),
	}
}
