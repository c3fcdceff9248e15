package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZoneDate(t *testing.T) {
	zone := NewZone("WIB", 7)

	testCases := []struct {
		name     string
		instant  time.Time
		expected time.Time
	}{
		{
			name:     "afternoon UTC is next local day",
			instant:  time.Date(2026, 10, 18, 17, 30, 0, 0, time.UTC),
			expected: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "just before local midnight",
			instant:  time.Date(2026, 10, 18, 16, 59, 59, 0, time.UTC),
			expected: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "morning UTC is same local day",
			instant:  time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC),
			expected: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.expected.Equal(zone.Date(tc.instant)), "got %s", zone.Date(tc.instant))
		})
	}
}

func TestZoneLocalRoundTrip(t *testing.T) {
	zone := NewZone("WIB", 7)
	original := time.Date(2026, 10, 19, 16, 50, 12, 345678900, time.UTC)

	local := zone.Local(original)
	assert.Equal(t, 23, local.Hour())
	assert.True(t, original.Equal(local.UTC()))
	assert.Equal(t, original, local.UTC())
}

func TestZoneStartOfDay(t *testing.T) {
	zone := NewZone("WIB", 7)
	start := zone.StartOfDay(time.Date(2026, 10, 19, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC), start)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	c := &Fixed{At: at}
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, at.Equal(c.Now()))

	c.Set(at.Add(time.Hour))
	assert.True(t, at.Add(time.Hour).Equal(c.Now()))
}
