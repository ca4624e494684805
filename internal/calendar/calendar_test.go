package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday_UsesZone(t *testing.T) {
	// 20:00 UTC is already the next day in India.
	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, Day("2024-03-01"), Today(now, time.UTC))

	ist, err := LoadZone("+05:30")
	require.NoError(t, err)
	assert.Equal(t, Day("2024-03-02"), Today(now, ist))

	assert.Equal(t, Day("2024-03-01"), Today(now, nil))
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2024-01-10", false},
		{"2024-02-29", false},
		{"2023-02-29", true},
		{"2024-1-5", true},
		{"20240110", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDay(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Day(tt.in), d)
		})
	}
}

func TestDay_AddDays(t *testing.T) {
	assert.Equal(t, Day("2024-01-05"), Day("2024-01-10").AddDays(-5))
	assert.Equal(t, Day("2024-02-28"), Day("2024-03-01").AddDays(-2))
	assert.Equal(t, Day("2025-01-01"), Day("2024-12-31").AddDays(1))
}

func TestDay_BeforeMatchesChronology(t *testing.T) {
	days := []Day{"2023-12-31", "2024-01-01", "2024-01-09", "2024-01-10", "2024-10-01"}
	for i := 0; i < len(days)-1; i++ {
		assert.True(t, days[i].Before(days[i+1]), "%s should sort before %s", days[i], days[i+1])
		assert.False(t, days[i+1].Before(days[i]))
	}
	assert.False(t, Day("2024-01-05").Before("2024-01-05"))
}

func TestLoadZone(t *testing.T) {
	tests := []struct {
		name       string
		wantOffset int
		wantErr    bool
	}{
		{"", 0, false},
		{"UTC", 0, false},
		{"+05:30", 5*3600 + 30*60, false},
		{"UTC+5:30", 5*3600 + 30*60, false},
		{"-0800", -8 * 3600, false},
		{"GMT-3", -3 * 3600, false},
		{"Mars/Olympus", 0, true},
		{"+25:00", 0, true},
	}

	ref := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadZone(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownZone)
				return
			}
			require.NoError(t, err)
			_, offset := ref.In(loc).Zone()
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestParseAsOf(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	got, err := ParseAsOf("2024-03-01", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, Day("2024-03-01"), Today(got, time.UTC))

	got, err = ParseAsOf("yesterday", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, Day("2024-03-09"), Today(got, time.UTC))

	got, err = ParseAsOf("", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	_, err = ParseAsOf("blorp", now, time.UTC)
	require.ErrorIs(t, err, ErrUnparsableDate)
}

func TestParseAsOf_RejectsMalformedDates(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []string{
		"2024-02-30",
		"2024-13-45",
		"2024/01/05",
		"01/05/2024",
		"2024-1-5",
		"20240105",
		"banana yesterday",
		"yesterday banana",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			got, err := ParseAsOf(text, now, time.UTC)
			require.ErrorIs(t, err, ErrUnparsableDate, "resolved to %s", got)
		})
	}
}

func TestParseAsOf_ExactDayInZone(t *testing.T) {
	loc, err := LoadZone("+05:30")
	require.NoError(t, err)

	got, err := ParseAsOf("2024-02-29", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	assert.Equal(t, Day("2024-02-29"), Today(got, loc))
}
