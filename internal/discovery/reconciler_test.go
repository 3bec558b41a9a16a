package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/promgen/internal/testutil"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `[
  {
    "labels": {
      "__shard": "tokyo",
      "service": "api",
      "project": "frontend",
      "farm": "web-farm",
      "job": "node"
    },
    "targets": ["web01:9100", "web02:9100"]
  },
  {
    "labels": {
      "__shard": "tokyo",
      "__metrics_path__": "/admin/metrics",
      "__farm_source": "ldap",
      "service": "api",
      "project": "backend",
      "farm": "app-farm",
      "job": "app"
    },
    "targets": ["app01:8080"]
  }
]`

func newReconciler(t *testing.T) (*Reconciler, core.Store) {
	t.Helper()
	store := testutil.NewStore(t)
	return NewReconciler(store, testutil.NewTestLogger(t), Options{}), store
}

func mustParse(t *testing.T, doc string) []core.DiscoveryEntry {
	t.Helper()
	entries, err := ParseDiscoveryDocument([]byte(doc))
	require.NoError(t, err)
	return entries
}

func TestReconcile_CreatesHierarchy(t *testing.T) {
	r, store := newReconciler(t)
	ctx := context.Background()

	created, skipped, err := r.Reconcile(ctx, mustParse(t, sampleDocument), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, created.Count(core.KindShard))
	assert.Equal(t, 1, created.Count(core.KindService))
	assert.Equal(t, 2, created.Count(core.KindFarm))
	assert.Equal(t, 2, created.Count(core.KindProject))
	assert.Equal(t, 3, created.Count(core.KindHost))
	assert.Equal(t, 2, created.Count(core.KindExporter))

	// The second entry reuses the shard and service of the first.
	assert.Equal(t, 1, skipped.Count(core.KindShard))
	assert.Equal(t, 1, skipped.Count(core.KindService))
	// web02 shares the node exporter row with web01.
	assert.Equal(t, 1, skipped.Count(core.KindExporter))

	targets, err := store.ListExporterTargets(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "app", targets[0].Job)
	assert.Equal(t, "/admin/metrics", targets[0].Path)
	assert.Equal(t, "ldap", targets[0].FarmSource)
	assert.Equal(t, core.DefaultFarmSource, targets[1].FarmSource)
}

func TestReconcile_Idempotent(t *testing.T) {
	r, _ := newReconciler(t)
	ctx := context.Background()
	entries := mustParse(t, sampleDocument)

	_, _, err := r.Reconcile(ctx, entries, nil)
	require.NoError(t, err)

	created, skipped, err := r.Reconcile(ctx, entries, nil)
	require.NoError(t, err)
	assert.True(t, created.Empty(), "second import created %s", created)
	assert.Equal(t, 2, skipped.Count(core.KindShard))
	assert.Equal(t, 3, skipped.Count(core.KindHost))
}

func TestReconcile_ShardOverride(t *testing.T) {
	r, store := newReconciler(t)
	ctx := context.Background()
	osaka := "osaka"

	created, _, err := r.Reconcile(ctx, mustParse(t, sampleDocument), &osaka)
	require.NoError(t, err)

	require.Len(t, created[core.KindShard], 1)
	assert.Equal(t, "osaka", created[core.KindShard][0].Name)

	targets, err := store.ListExporterTargets(ctx)
	require.NoError(t, err)
	for _, tgt := range targets {
		assert.Equal(t, "osaka", tgt.ShardName)
	}
}

func TestReconcile_DefaultShard(t *testing.T) {
	r, _ := newReconciler(t)

	created, _, err := r.Reconcile(context.Background(), []core.DiscoveryEntry{{
		Labels:  map[string]string{"service": "api", "project": "p", "farm": "f", "job": "node"},
		Targets: []string{"h:9100"},
	}}, nil)
	require.NoError(t, err)
	require.Len(t, created[core.KindShard], 1)
	assert.Equal(t, core.DefaultShardName, created[core.KindShard][0].Name)
}

func TestReconcile_ServiceKeepsShard(t *testing.T) {
	r, store := newReconciler(t)
	ctx := context.Background()
	entries := mustParse(t, sampleDocument)

	_, _, err := r.Reconcile(ctx, entries, nil)
	require.NoError(t, err)

	osaka := "osaka"
	created, skipped, err := r.Reconcile(ctx, entries, &osaka)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Count(core.KindShard))
	assert.Equal(t, 2, skipped.Count(core.KindService))

	svc, err := store.GetServiceByName(ctx, "api")
	require.NoError(t, err)
	targets, err := store.ListExporterTargets(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, targets)
	assert.Equal(t, "tokyo", targets[0].ShardName, "service %s moved shards", svc.Name)
}

func TestReconcile_FarmRelink(t *testing.T) {
	r, store := newReconciler(t)
	ctx := context.Background()

	entry := func(farm string) []core.DiscoveryEntry {
		return []core.DiscoveryEntry{{
			Labels:  map[string]string{"service": "api", "project": "frontend", "farm": farm, "job": "node"},
			Targets: []string{"web01:9100"},
		}}
	}

	_, _, err := r.Reconcile(ctx, entry("old-farm"), nil)
	require.NoError(t, err)

	created, skipped, err := r.Reconcile(ctx, entry("new-farm"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created.Count(core.KindProject))
	assert.Equal(t, 0, skipped.Count(core.KindProject), "relink is not counted")
	assert.Equal(t, 1, created.Count(core.KindFarm))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[core.KindProject])

	svc, err := store.GetServiceByName(ctx, "api")
	require.NoError(t, err)
	project, err := store.GetProject(ctx, "frontend", svc.ID)
	require.NoError(t, err)

	targets, err := store.ListExporterTargets(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "new-farm", targets[0].FarmName)
	assert.True(t, project.HasFarm(targets[0].FarmID))

	// Importing the same farm again is a no-op.
	created, _, err = r.Reconcile(ctx, entry("new-farm"), nil)
	require.NoError(t, err)
	assert.True(t, created.Empty())
}

func TestReconcile_MalformedTarget(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "no colon", target: "no-port-here"},
		{name: "non-numeric port", target: "web01:http"},
		{name: "empty host", target: ":9100"},
		{name: "port out of range", target: "web01:70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newReconciler(t)
			ctx := context.Background()

			_, _, err := r.Reconcile(ctx, []core.DiscoveryEntry{{
				Labels:  map[string]string{"__shard": "tokyo", "service": "api", "project": "p", "farm": "f", "job": "node"},
				Targets: []string{"good:9100", tt.target},
			}}, nil)

			var malformed *core.MalformedTargetError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.target, malformed.Target)
			assert.Equal(t, "api", malformed.Entry["service"])

			counts, err := store.Counts(ctx)
			require.NoError(t, err)
			for kind, n := range counts {
				assert.Zero(t, n, "%s rows committed from a failing entry", kind)
			}
		})
	}
}

func TestReconcile_EarlierEntriesCommitted(t *testing.T) {
	r, store := newReconciler(t)
	ctx := context.Background()

	entries := mustParse(t, sampleDocument)
	entries = append(entries, core.DiscoveryEntry{
		Labels:  map[string]string{"service": "api", "project": "bad", "farm": "f", "job": "node"},
		Targets: []string{"nohost"},
	})

	created, _, err := r.Reconcile(ctx, entries, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 2")
	assert.Equal(t, 2, created.Count(core.KindProject))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[core.KindProject])
}

func TestReconcile_MissingLabel(t *testing.T) {
	r, _ := newReconciler(t)

	_, _, err := r.Reconcile(context.Background(), []core.DiscoveryEntry{{
		Labels:  map[string]string{"service": "api", "farm": "f", "job": "node"},
		Targets: []string{"h:9100"},
	}}, nil)

	var missing *core.MissingLabelError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "project", missing.Label)
}

func TestReconcile_DefaultFarmSourceOption(t *testing.T) {
	store := testutil.NewStore(t)
	r := NewReconciler(store, nil, Options{DefaultFarmSource: "consul"})
	ctx := context.Background()

	_, _, err := r.Reconcile(ctx, []core.DiscoveryEntry{{
		Labels:  map[string]string{"service": "api", "project": "p", "farm": "f", "job": "node"},
		Targets: []string{"h:9100"},
	}}, nil)
	require.NoError(t, err)

	targets, err := store.ListExporterTargets(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "consul", targets[0].FarmSource)
}

func TestParseDiscoveryDocument_Invalid(t *testing.T) {
	_, err := ParseDiscoveryDocument([]byte(`{"labels": {}}`))
	assert.Error(t, err)
}
