package silence

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

func TestBuildSilenceAt_Duration(t *testing.T) {
	tests := []struct {
		duration string
		wantEnd  string
	}{
		{duration: "5m", wantEnd: "2024-01-01T00:05:00.000Z"},
		{duration: "2h", wantEnd: "2024-01-01T02:00:00.000Z"},
		{duration: "1d", wantEnd: "2024-01-02T00:00:00.000Z"},
		{duration: "90m", wantEnd: "2024-01-01T01:30:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			req, err := BuildSilenceAt(fixedNow, map[string]string{"service": "api"}, ptr(tt.duration), nil, "Asia/Tokyo")
			require.NoError(t, err)
			assert.Equal(t, "2024-01-01T00:00:00.000Z", req.StartsAt)
			assert.Equal(t, tt.wantEnd, req.EndsAt)
		})
	}
}

func TestParseDuration_Empty(t *testing.T) {
	_, err := ParseDuration("")
	var unitErr *core.UnknownDurationUnitError
	assert.ErrorAs(t, err, &unitErr)
}

func TestBuildSilenceAt_NonUTCNow(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, tokyo)

	req, err := BuildSilenceAt(now, map[string]string{"service": "api"}, ptr("5m"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", req.StartsAt)
	assert.Equal(t, "2024-01-01T00:05:00.000Z", req.EndsAt)
}

func TestBuildSilenceAt_UnknownUnit(t *testing.T) {
	for _, d := range []string{"5s", "1w", "10"} {
		t.Run(d, func(t *testing.T) {
			_, err := BuildSilenceAt(fixedNow, map[string]string{"a": "b"}, ptr(d), nil, "")
			var unitErr *core.UnknownDurationUnitError
			require.ErrorAs(t, err, &unitErr)
			assert.Equal(t, d, unitErr.Duration)
		})
	}
}

func TestBuildSilenceAt_BadNumber(t *testing.T) {
	for _, d := range []string{"xm", "0h", "-5m"} {
		t.Run(d, func(t *testing.T) {
			_, err := BuildSilenceAt(fixedNow, map[string]string{"a": "b"}, ptr(d), nil, "")
			require.Error(t, err)
			var unitErr *core.UnknownDurationUnitError
			assert.NotErrorAs(t, err, &unitErr)
		})
	}
}

func TestBuildSilenceAt_Explicit(t *testing.T) {
	tests := []struct {
		name      string
		window    TimeWindow
		tz        string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "tokyo local time",
			window:    TimeWindow{StartsAt: "2024-01-01 09:00", EndsAt: "2024-01-01 10:30:15"},
			tz:        "Asia/Tokyo",
			wantStart: "2024-01-01T00:00:00.000Z",
			wantEnd:   "2024-01-01T01:30:15.000Z",
		},
		{
			name:      "utc default",
			window:    TimeWindow{StartsAt: "2024-01-01T09:00:00", EndsAt: "2024-01-02"},
			wantStart: "2024-01-01T09:00:00.000Z",
			wantEnd:   "2024-01-02T00:00:00.000Z",
		},
		{
			name:      "rfc3339 offset replaced by configured zone",
			window:    TimeWindow{StartsAt: "2024-01-01T09:00:00+02:00", EndsAt: "2024-01-01T12:00:00Z"},
			tz:        "Asia/Tokyo",
			wantStart: "2024-01-01T00:00:00.000Z",
			wantEnd:   "2024-01-01T03:00:00.000Z",
		},
		{
			name:      "utc input read as tokyo wall clock",
			window:    TimeWindow{StartsAt: "2024-01-01T00:00:00Z", EndsAt: "2024-01-01T01:00:00Z"},
			tz:        "Asia/Tokyo",
			wantStart: "2023-12-31T15:00:00.000Z",
			wantEnd:   "2023-12-31T16:00:00.000Z",
		},
		{
			name:      "rfc3339 in utc zone",
			window:    TimeWindow{StartsAt: "2024-01-01T09:00:00-05:00", EndsAt: "2024-01-01T10:00:00-05:00"},
			wantStart: "2024-01-01T09:00:00.000Z",
			wantEnd:   "2024-01-01T10:00:00.000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := tt.window
			req, err := BuildSilenceAt(fixedNow, map[string]string{"service": "api"}, nil, &window, tt.tz)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, req.StartsAt)
			assert.Equal(t, tt.wantEnd, req.EndsAt)
		})
	}
}

func TestBuildSilenceAt_EmptyDurationUsesWindow(t *testing.T) {
	window := &TimeWindow{StartsAt: "2024-01-01 09:00", EndsAt: "2024-01-01 10:00"}

	req, err := BuildSilenceAt(fixedNow, map[string]string{"service": "api"}, ptr(""), window, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T09:00:00.000Z", req.StartsAt)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", req.EndsAt)

	_, err = BuildSilenceAt(fixedNow, map[string]string{"service": "api"}, ptr(""), nil, "")
	assert.ErrorContains(t, err, "duration or explicit")
}

func TestBuildSilenceAt_ExplicitErrors(t *testing.T) {
	labels := map[string]string{"service": "api"}

	_, err := BuildSilenceAt(fixedNow, labels, nil, &TimeWindow{StartsAt: "yesterday", EndsAt: "2024-01-01"}, "")
	assert.ErrorContains(t, err, "startsAt")

	_, err = BuildSilenceAt(fixedNow, labels, nil, &TimeWindow{StartsAt: "2024-01-02", EndsAt: "2024-01-01"}, "")
	assert.ErrorContains(t, err, "not after")

	_, err = BuildSilenceAt(fixedNow, labels, nil, &TimeWindow{StartsAt: "2024-01-01", EndsAt: "2024-01-02"}, "Mars/Olympus")
	assert.ErrorContains(t, err, "timezone")

	_, err = BuildSilenceAt(fixedNow, labels, nil, nil, "")
	assert.Error(t, err)

	_, err = BuildSilenceAt(fixedNow, nil, ptr("5m"), nil, "")
	assert.Error(t, err)
}

func TestBuildSilenceAt_Matchers(t *testing.T) {
	req, err := BuildSilenceAt(fixedNow, map[string]string{
		"service":  "api",
		"instance": "prod-*",
		"env":      "prod",
	}, ptr("1h"), nil, "")
	require.NoError(t, err)

	assert.Equal(t, []Matcher{
		{Name: "env", Value: "prod", IsRegex: false},
		{Name: "instance", Value: "prod-*", IsRegex: true},
		{Name: "service", Value: "api", IsRegex: false},
	}, req.Matchers)
}

func TestRequest_JSON(t *testing.T) {
	req, err := BuildSilenceAt(fixedNow, map[string]string{"service": "api"}, ptr("5m"), nil, "")
	require.NoError(t, err)
	req.CreatedBy = "ops"
	req.Comment = "maintenance"

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"matchers": [{"name": "service", "value": "api", "isRegex": false}],
		"startsAt": "2024-01-01T00:00:00.000Z",
		"endsAt": "2024-01-01T00:05:00.000Z",
		"createdBy": "ops",
		"comment": "maintenance"
	}`, string(data))
}
