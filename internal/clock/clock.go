package clock

import (
	"time"

	"sales-ops-api/internal/models"
)

// Clock supplies the current time in the organizational timezone.
// Planning and due-date checks go through it so tests can pin a date.
type Clock interface {
	Now() time.Time
	Today() models.Date
}

type orgClock struct {
	loc *time.Location
}

func (c orgClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c orgClock) Today() models.Date {
	return models.DateOf(c.Now())
}

// active is the process-wide clock. Defaults to UTC until Init runs.
var active Clock = orgClock{loc: time.UTC}

// Init sets the organizational timezone for the process.
func Init(tzName string) error {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return err
	}
	active = orgClock{loc: loc}
	return nil
}

// Set replaces the active clock. Intended for tests.
func Set(c Clock) {
	active = c
}

// Now returns the current time in the organizational timezone.
func Now() time.Time {
	return active.Now()
}

// Today returns the current calendar day in the organizational timezone.
func Today() models.Date {
	return active.Today()
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

func (f Fixed) Today() models.Date {
	return models.DateOf(f.T)
}
