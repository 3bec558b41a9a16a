package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/promgen/internal/metrics"
	"github.com/leapstack-labs/promgen/pkg/core"
)

// requiredLabels must be present and non-empty on every imported entry.
var requiredLabels = []string{core.LabelService, core.LabelFarm, core.LabelProject, core.LabelJob}

// Options configures a Reconciler.
type Options struct {
	// DefaultFarmSource is the source given to farms created without a
	// __farm_source label. Defaults to core.DefaultFarmSource.
	DefaultFarmSource string
}

// Reconciler imports discovery documents into the store.
type Reconciler struct {
	store      core.Store
	logger     *slog.Logger
	farmSource string
}

// NewReconciler creates a Reconciler. A nil logger discards output.
func NewReconciler(store core.Store, logger *slog.Logger, opts Options) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	source := opts.DefaultFarmSource
	if source == "" {
		source = core.DefaultFarmSource
	}
	return &Reconciler{store: store, logger: logger, farmSource: source}
}

// Reconcile upserts the hierarchy described by entries and reports which
// entities were created and which already existed.
//
// Each entry is applied in its own transaction. When an entry fails, the
// counters returned cover only the entries committed before it and the
// error names the failing entry. A non-nil shardOverride replaces every
// entry's __shard label.
func (r *Reconciler) Reconcile(ctx context.Context, entries []core.DiscoveryEntry, shardOverride *string) (created, skipped core.CounterSet, err error) {
	created, skipped = core.NewCounterSet(), core.NewCounterSet()

	for i, entry := range entries {
		if shardOverride != nil {
			r.logger.Debug("importing into shard", "shard", *shardOverride)
			entry = withLabel(entry, core.LabelShard, *shardOverride)
		}

		entryCreated, entrySkipped := core.NewCounterSet(), core.NewCounterSet()
		err := r.store.InTx(ctx, func(inv core.Inventory) error {
			return r.reconcileEntry(ctx, inv, entry, entryCreated, entrySkipped)
		})
		if err != nil {
			metrics.ImportErrorsTotal.WithLabelValues("targets").Inc()
			return created, skipped, fmt.Errorf("entry %d: %w", i, err)
		}

		created.Merge(entryCreated)
		skipped.Merge(entrySkipped)
	}

	metrics.CountEntities(created.Summary(), skipped.Summary())
	r.logger.Info("targets imported", "created", created.String(), "skipped", skipped.String())
	return created, skipped, nil
}

func (r *Reconciler) reconcileEntry(ctx context.Context, inv core.Inventory, entry core.DiscoveryEntry, created, skipped core.CounterSet) error {
	for _, label := range requiredLabels {
		if entry.Label(label, "") == "" {
			return &core.MissingLabelError{Label: label, Entry: entry.Labels}
		}
	}

	// Parse every target up front so a bad one aborts before any write.
	targets := make([]target, 0, len(entry.Targets))
	for _, raw := range entry.Targets {
		t, err := parseTarget(raw, entry.Labels)
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}

	shard, ok, err := inv.UpsertShard(ctx, entry.Label(core.LabelShard, core.DefaultShardName))
	if err != nil {
		return err
	}
	core.Record(created, skipped, core.EntityRef{Kind: core.KindShard, ID: shard.ID, Name: shard.Name}, ok)

	svc, ok, err := inv.UpsertService(ctx, entry.Labels[core.LabelService], shard.ID)
	if err != nil {
		return err
	}
	core.Record(created, skipped, core.EntityRef{Kind: core.KindService, ID: svc.ID, Name: svc.Name}, ok)
	if !ok && svc.ShardID != shard.ID {
		r.logger.Debug("service keeps its shard", "service", svc.Name, "requested_shard", shard.Name)
	}

	farm, ok, err := inv.UpsertFarm(ctx, entry.Labels[core.LabelFarm], entry.Label(core.LabelFarmSource, r.farmSource))
	if err != nil {
		return err
	}
	core.Record(created, skipped, core.EntityRef{Kind: core.KindFarm, ID: farm.ID, Name: farm.Name}, ok)

	project, ok, err := inv.UpsertProject(ctx, entry.Labels[core.LabelProject], svc.ID, &farm.ID)
	if err != nil {
		return err
	}
	switch {
	case ok:
		created.Add(core.EntityRef{Kind: core.KindProject, ID: project.ID, Name: project.Name})
	case !project.HasFarm(farm.ID):
		r.logger.Debug("linking farm to project", "farm", farm.Name, "project", project.Name)
		if err := inv.RelinkProjectFarm(ctx, project.ID, farm.ID); err != nil {
			return err
		}
		metrics.ProjectRelinksTotal.Inc()
	}

	job := entry.Labels[core.LabelJob]
	path := entry.Labels[core.LabelMetricsPath]
	for _, t := range targets {
		host, ok, err := inv.UpsertHost(ctx, t.host, farm.ID)
		if err != nil {
			return err
		}
		core.Record(created, skipped, core.EntityRef{Kind: core.KindHost, ID: host.ID, Name: host.Name}, ok)

		exp, ok, err := inv.UpsertExporter(ctx, job, t.port, project.ID, path)
		if err != nil {
			return err
		}
		core.Record(created, skipped, core.EntityRef{
			Kind: core.KindExporter,
			ID:   exp.ID,
			Name: exp.Job + ":" + strconv.Itoa(exp.Port),
		}, ok)
	}
	return nil
}

// withLabel returns a copy of entry with labels[name] set to value.
func withLabel(entry core.DiscoveryEntry, name, value string) core.DiscoveryEntry {
	labels := make(map[string]string, len(entry.Labels)+1)
	for k, v := range entry.Labels {
		labels[k] = v
	}
	labels[name] = value
	entry.Labels = labels
	return entry
}
