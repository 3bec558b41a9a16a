// Package silence builds Alertmanager silence requests.
package silence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// TimestampFormat is the wire format of StartsAt and EndsAt.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// localLayouts are tried, in order, for explicit timestamps without an
// offset. They are interpreted in the configured timezone.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Matcher selects alerts by label.
type Matcher struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	IsRegex bool   `json:"isRegex"`
}

// Request is the body of POST /api/v1/silences.
type Request struct {
	Matchers  []Matcher `json:"matchers"`
	StartsAt  string    `json:"startsAt"`
	EndsAt    string    `json:"endsAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	Comment   string    `json:"comment,omitempty"`
}

// TimeWindow holds explicit start and end timestamps as typed by an
// operator.
type TimeWindow struct {
	StartsAt string
	EndsAt   string
}

// BuildSilence builds a silence for labels starting now.
// See BuildSilenceAt.
func BuildSilence(labels map[string]string, duration *string, explicit *TimeWindow, tz string) (*Request, error) {
	return BuildSilenceAt(time.Now(), labels, duration, explicit, tz)
}

// BuildSilenceAt builds a silence for labels. With a duration such as "5m",
// "2h" or "1d" the window is [now, now+duration]; a nil or empty duration
// falls back to explicit, parsed in timezone tz (UTC when empty). Values ending in "*" become regex
// matchers.
func BuildSilenceAt(now time.Time, labels map[string]string, duration *string, explicit *TimeWindow, tz string) (*Request, error) {
	if len(labels) == 0 {
		return nil, errors.New("silence needs at least one label")
	}

	var start, end time.Time
	switch {
	case duration != nil && *duration != "":
		d, err := ParseDuration(*duration)
		if err != nil {
			return nil, err
		}
		start = now.UTC()
		end = start.Add(d)
	case explicit != nil:
		loc, err := loadLocation(tz)
		if err != nil {
			return nil, err
		}
		if start, err = parseTimestamp(explicit.StartsAt, loc); err != nil {
			return nil, fmt.Errorf("invalid startsAt: %w", err)
		}
		if end, err = parseTimestamp(explicit.EndsAt, loc); err != nil {
			return nil, fmt.Errorf("invalid endsAt: %w", err)
		}
	default:
		return nil, errors.New("silence needs a duration or explicit start and end times")
	}

	if !end.After(start) {
		return nil, fmt.Errorf("silence ends at %s, not after its start %s", format(end), format(start))
	}

	return &Request{
		Matchers: matchers(labels),
		StartsAt: format(start),
		EndsAt:   format(end),
	}, nil
}

// ParseDuration parses an integer followed by m, h or d.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, &core.UnknownDurationUnitError{Duration: s}
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return 0, &core.UnknownDurationUnitError{Duration: s}
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid duration %q: must be positive", s)
	}
	return time.Duration(n) * unit, nil
}

func matchers(labels map[string]string) []Matcher {
	out := make([]Matcher, 0, len(labels))
	for name, value := range labels {
		out = append(out, Matcher{
			Name:    name,
			Value:   value,
			IsRegex: strings.HasSuffix(value, "*"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

// parseTimestamp accepts RFC 3339 or one of localLayouts. The wall clock is
// always read in loc; an offset in the input is discarded.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func format(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
