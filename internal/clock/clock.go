package clock

import (
	"fmt"
	"time"
)

// Clock provides the current absolute instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock. Instants are returned in UTC.
type System struct{}

// Now returns the current instant in UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Used by tests and replays.
type Fixed struct {
	At time.Time
}

// Now returns the configured instant in UTC.
func (f *Fixed) Now() time.Time { return f.At.UTC() }

// Set moves the fixed clock.
func (f *Fixed) Set(t time.Time) { f.At = t }

// Zone converts absolute instants to the operational local time.
// All stored instants are UTC; Zone is only used to derive local calendar
// dates and to format values for presentation.
type Zone struct {
	loc *time.Location
}

// NewZone builds a fixed-offset zone, e.g. NewZone("WIB", 7).
func NewZone(name string, offsetHours int) Zone {
	if name == "" {
		name = fmt.Sprintf("UTC%+d", offsetHours)
	}
	return Zone{loc: time.FixedZone(name, offsetHours*3600)}
}

// Location returns the underlying *time.Location.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Local converts t to local time. The instant is unchanged.
func (z Zone) Local(t time.Time) time.Time {
	return t.In(z.Location())
}

// Date returns the local calendar date of t, encoded as midnight UTC of that
// date so it can be stored in a DATE column and compared by equality.
func (z Zone) Date(t time.Time) time.Time {
	y, m, d := z.Local(t).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the absolute instant of local midnight for t's local date.
func (z Zone) StartOfDay(t time.Time) time.Time {
	y, m, d := z.Local(t).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, z.Location()).UTC()
}

// Format renders t in local time with the given layout.
func (z Zone) Format(t time.Time, layout string) string {
	return z.Local(t).Format(layout)
}
