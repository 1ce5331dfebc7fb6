package license

import (
	"time"

	"github.com/google/uuid"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports wall-clock time in Location, which decides the calendar
// day used for license windows.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

type IDGenerator interface {
	NewMachineID() string
}

// UUIDGenerator issues random (v4) UUIDs as machine identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewMachineID() string { return uuid.NewString() }
