package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/promgen/internal/cli/testutil"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type urlAddResult struct {
	URL     core.URL `json:"url"`
	Created bool     `json:"created"`
}

func addURL(t *testing.T, url string) urlAddResult {
	t.Helper()
	out, _, err := testutil.ExecuteCommand(t, NewURLCommand(), "", "add", url, "--service", "api", "--project", "checkout")
	require.NoError(t, err)
	var res urlAddResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestURLAdd(t *testing.T) {
	testutil.SetupTestEnv(t)
	importTargets(t)

	first := addURL(t, "https://shop.example.com/health")
	assert.True(t, first.Created)
	assert.NotEmpty(t, first.URL.ID)

	second := addURL(t, "https://shop.example.com/health")
	assert.False(t, second.Created)
	assert.Equal(t, first.URL.ID, second.URL.ID)

	out, _, err := testutil.ExecuteCommand(t, NewExportCommand(), "", "targets")
	require.NoError(t, err)

	var doc []core.DiscoveryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc, 1)
	assert.Equal(t, []string{"https://shop.example.com/health"}, doc[0].Targets)
	assert.Equal(t, map[string]string{
		core.LabelService: "api",
		core.LabelProject: "checkout",
		core.LabelShard:   core.DefaultShardName,
	}, doc[0].Labels)
}

func TestURLAdd_UnknownProject(t *testing.T) {
	testutil.SetupTestEnv(t)
	importTargets(t)

	_, _, err := testutil.ExecuteCommand(t, NewURLCommand(), "", "add", "https://x.example.com", "--service", "api", "--project", "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestURLAdd_RequiresFlags(t *testing.T) {
	testutil.SetupTestEnv(t)

	_, _, err := testutil.ExecuteCommand(t, NewURLCommand(), "", "add", "https://x.example.com", "--service", "api")
	assert.Error(t, err)
}

func TestExporter_DisableRemovesFromConfig(t *testing.T) {
	testutil.SetupTestEnv(t)
	importTargets(t)

	out, _, err := testutil.ExecuteCommand(t, NewExporterCommand(), "", "list")
	require.NoError(t, err)

	var listed []exporterJSON
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	exp := listed[0]
	assert.Equal(t, "node", exp.Job)
	assert.Equal(t, 9100, exp.Port)
	assert.Equal(t, "checkout", exp.Project)
	assert.Equal(t, "api", exp.Service)
	assert.Equal(t, "web", exp.Farm)
	assert.True(t, exp.Enabled)

	_, _, err = testutil.ExecuteCommand(t, NewExporterCommand(), "", "disable", exp.ID)
	require.NoError(t, err)

	out, _, err = testutil.ExecuteCommand(t, NewExportCommand(), "", "config")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, _, err = testutil.ExecuteCommand(t, NewExporterCommand(), "", "enable", exp.ID)
	require.NoError(t, err)

	out, _, err = testutil.ExecuteCommand(t, NewExportCommand(), "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "web01:9100")
}

func TestExporter_UnknownID(t *testing.T) {
	testutil.SetupTestEnv(t)

	_, _, err := testutil.ExecuteCommand(t, NewExporterCommand(), "", "disable", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListExportersText(t *testing.T) {
	tr := testutil.NewTestRendererText()
	exporters := []core.ExporterTarget{
		{Exporter: core.Exporter{ID: "e1", Job: "node", Port: 9100, Enabled: true}, ProjectName: "checkout", ServiceName: "api"},
	}

	require.NoError(t, listExportersText(tr.Renderer, exporters))

	out := tr.Output()
	assert.Contains(t, out, "Exporters (1 total)")
	assert.Contains(t, out, "api/checkout")
	assert.Contains(t, out, "│ -")
}

func TestStatus(t *testing.T) {
	testutil.SetupTestEnv(t)
	importTargets(t)
	addURL(t, "https://shop.example.com/health")

	out, _, err := testutil.ExecuteCommand(t, NewStatusCommand(), "")
	require.NoError(t, err)

	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 1, counts["Shard"])
	assert.Equal(t, 2, counts["Host"])
	assert.Equal(t, 1, counts["Exporter"])
	assert.Equal(t, 1, counts["URL"])
	assert.Equal(t, 0, counts["Rule"])
}

func TestStatus_Markdown(t *testing.T) {
	testutil.SetupTestEnv(t)
	testutil.SetConfigEnv(t, "OUTPUT", "markdown")

	out, _, err := testutil.ExecuteCommand(t, NewStatusCommand(), "")
	require.NoError(t, err)

	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Inventory")
	assert.Contains(t, out, "## Configuration")
	assert.Contains(t, out, "- **Prometheus**: (not set)")
}
