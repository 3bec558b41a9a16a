package commands

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	_ "time/tzdata"

	"github.com/leapstack-labs/promgen/internal/cli/testutil"
	"github.com/leapstack-labs/promgen/internal/silence"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alertmanager records the last silence posted to it.
func alertmanager(t *testing.T, status int) *silence.Request {
	t.Helper()
	got := &silence.Request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/silences", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, got))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	t.Cleanup(srv.Close)
	testutil.SetConfigEnv(t, "ALERTMANAGER__URL", srv.URL)
	return got
}

func TestSilence_ExplicitWindow(t *testing.T) {
	testutil.SetupTestEnv(t)
	testutil.SetConfigEnv(t, "TIMEZONE", "Asia/Tokyo")
	got := alertmanager(t, http.StatusOK)

	out, _, err := testutil.ExecuteCommand(t, NewSilenceCommand(), "",
		"service=api", "instance=web*",
		"--starts-at", "2024-03-01 09:00", "--ends-at", "2024-03-01 11:00",
		"--comment", "kernel upgrade", "--created-by", "ops")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01T00:00:00.000Z", got.StartsAt)
	assert.Equal(t, "2024-03-01T02:00:00.000Z", got.EndsAt)
	assert.Equal(t, "kernel upgrade", got.Comment)
	assert.Equal(t, "ops", got.CreatedBy)
	assert.ElementsMatch(t, []silence.Matcher{
		{Name: "service", Value: "api"},
		{Name: "instance", Value: "web*", IsRegex: true},
	}, got.Matchers)

	var printed silence.Request
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	assert.Equal(t, *got, printed)
}

func TestSilence_Duration(t *testing.T) {
	testutil.SetupTestEnv(t)
	got := alertmanager(t, http.StatusOK)
	testutil.SetConfigEnv(t, "OUTPUT", "text")

	out, _, err := testutil.ExecuteCommand(t, NewSilenceCommand(), "", "host=web01", "--duration", "2h")
	require.NoError(t, err)

	assert.Contains(t, out, "silence created")
	assert.Contains(t, out, "host=web01")
	require.Len(t, got.Matchers, 1)
	assert.NotEmpty(t, got.StartsAt)
	assert.NotEmpty(t, got.EndsAt)
}

func TestSilence_Rejected(t *testing.T) {
	testutil.SetupTestEnv(t)
	alertmanager(t, http.StatusBadRequest)

	_, _, err := testutil.ExecuteCommand(t, NewSilenceCommand(), "", "host=web01", "--duration", "1h")
	var rejected *core.SilenceRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
}

func TestSilence_InvalidArguments(t *testing.T) {
	testutil.SetupTestEnv(t)
	alertmanager(t, http.StatusOK)

	tests := []struct {
		name string
		args []string
	}{
		{name: "label without value", args: []string{"host", "--duration", "1h"}},
		{name: "empty label name", args: []string{"=web01", "--duration", "1h"}},
		{name: "unknown unit", args: []string{"host=web01", "--duration", "2w"}},
		{name: "duration with window", args: []string{"host=web01", "--duration", "1h", "--starts-at", "2024-03-01", "--ends-at", "2024-03-02"}},
		{name: "start without end", args: []string{"host=web01", "--starts-at", "2024-03-01"}},
		{name: "no labels", args: []string{"--duration", "1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := testutil.ExecuteCommand(t, NewSilenceCommand(), "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseLabelArgs(t *testing.T) {
	labels, err := parseLabelArgs([]string{"service=api", " job =node", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"service": "api", "job": "node", "expr": "a=b"}, labels)
}

func TestReload(t *testing.T) {
	testutil.SetupTestEnv(t)
	calls := reloadServer(t, http.StatusOK)
	testutil.SetConfigEnv(t, "OUTPUT", "text")

	out, _, err := testutil.ExecuteCommand(t, NewReloadCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "reloaded Prometheus")
	assert.Equal(t, int32(1), calls.Load())
}

func TestReload_Failure(t *testing.T) {
	testutil.SetupTestEnv(t)
	reloadServer(t, http.StatusServiceUnavailable)

	_, _, err := testutil.ExecuteCommand(t, NewReloadCommand(), "")
	var reloadErr *core.ReloadError
	require.ErrorAs(t, err, &reloadErr)
	assert.Equal(t, http.StatusServiceUnavailable, reloadErr.StatusCode)
}

func TestReload_NotConfigured(t *testing.T) {
	testutil.SetupTestEnv(t)

	_, _, err := testutil.ExecuteCommand(t, NewReloadCommand(), "")
	assert.Error(t, err)
}
