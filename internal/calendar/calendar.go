// Package calendar resolves sync days.
//
// A sync day is a calendar date rendered as YYYY-MM-DD in a configured
// time zone. Because that layout sorts lexicographically in chronological
// order, days can be compared as plain strings, which is what the retention
// filter relies on when it asks the document store for `date < cutoff`.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve on hosts without zoneinfo

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Layout is the on-disk representation of a Day.
const Layout = "2006-01-02"

var (
	// ErrInvalidDay is returned when a string is not a YYYY-MM-DD date.
	ErrInvalidDay = errors.New("invalid day")

	// ErrUnknownZone is returned when a zone is neither an IANA name nor a fixed offset.
	ErrUnknownZone = errors.New("unknown time zone")

	// ErrUnparsableDate is returned when ParseAsOf cannot make sense of its input.
	ErrUnparsableDate = errors.New("unparsable date")
)

// Day is a calendar date in YYYY-MM-DD form.
type Day string

// Today returns the day containing now, as observed in loc.
func Today(now time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc).Format(Layout))
}

// ParseDay validates s and returns it as a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	// Reject non-canonical forms such as "2024-1-5".
	if t.Format(Layout) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day(s), nil
}

// AddDays returns the day n days after d (n may be negative).
// d must be a valid Day.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(Layout))
}

// Before reports whether d sorts strictly before other.
func (d Day) Before(other Day) bool {
	return string(d) < string(other)
}

func (d Day) String() string {
	return string(d)
}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{1,2})(?::?(\d{2}))?$`)

// LoadZone resolves a zone name.
//
// Accepted forms are IANA names ("UTC", "Asia/Kolkata") and fixed offsets
// ("+05:30", "-0800", "UTC+5:30", "GMT-3"). An empty name means UTC.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}

	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}

	offset := name
	for _, prefix := range []string{"UTC", "GMT"} {
		if strings.HasPrefix(strings.ToUpper(offset), prefix) {
			offset = offset[len(prefix):]
			break
		}
	}

	m := offsetPattern.FindStringSubmatch(offset)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}

	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}

	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone(name, seconds), nil
}

// ParseAsOf resolves a user supplied reference date.
//
// It accepts YYYY-MM-DD as well as natural language ("yesterday",
// "last friday", "3 days ago") relative to now. The returned time is
// expressed in loc.
func ParseAsOf(text string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return now.In(loc), nil
	}

	// Anything shaped like a numeric date must be an exact YYYY-MM-DD.
	if numericDate.MatchString(text) {
		day, err := ParseDay(text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: want YYYY-MM-DD", ErrUnparsableDate, text)
		}
		return time.ParseInLocation(Layout, string(day), loc)
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnparsableDate, text, err)
	}
	// The match has to cover the whole input, or "banana yesterday" would
	// quietly resolve to yesterday.
	if r == nil || r.Index != 0 || len(r.Text) != len(text) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, text)
	}
	return r.Time.In(loc), nil
}

var numericDate = regexp.MustCompile(`^[0-9./-]+$`)
