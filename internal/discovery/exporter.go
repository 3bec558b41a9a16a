package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// Exporter renders the store as discovery documents.
type Exporter struct {
	store  core.Store
	logger *slog.Logger
}

// NewExporter creates an Exporter. A nil logger discards output.
func NewExporter(store core.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{store: store, logger: logger}
}

// urlGroup keys URL targets by their owning hierarchy.
type urlGroup struct {
	project, service, shard string
}

// ExportTargets returns the probe URLs grouped by project, service and
// shard.
func (e *Exporter) ExportTargets(ctx context.Context) (string, error) {
	urls, err := e.store.ListURLTargets(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list urls: %w", err)
	}

	groups := make(map[urlGroup][]string)
	for _, u := range urls {
		key := urlGroup{project: u.ProjectName, service: u.ServiceName, shard: u.ShardName}
		groups[key] = append(groups[key], u.URL)
	}

	entries := make([]core.DiscoveryEntry, 0, len(groups))
	for key, targets := range groups {
		entries = append(entries, core.DiscoveryEntry{
			Labels: map[string]string{
				core.LabelProject: key.project,
				core.LabelService: key.service,
				core.LabelShard:   key.shard,
			},
			Targets: targets,
		})
	}
	return encodeDocument(entries)
}

// ExportExporterConfig returns one record per enabled exporter whose
// project is linked to a farm. Nil filters match everything; otherwise the
// service or project name must match exactly.
func (e *Exporter) ExportExporterConfig(ctx context.Context, serviceFilter, projectFilter *string) (string, error) {
	exporters, err := e.store.ListExporterTargets(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list exporters: %w", err)
	}

	hostsByFarm := make(map[string][]core.Host)
	entries := make([]core.DiscoveryEntry, 0, len(exporters))
	for _, exp := range exporters {
		switch {
		case exp.FarmID == "":
			continue
		case serviceFilter != nil && exp.ServiceName != *serviceFilter:
			continue
		case projectFilter != nil && exp.ProjectName != *projectFilter:
			continue
		case !exp.Enabled:
			e.logger.Debug("skipping disabled exporter", "job", exp.Job, "port", exp.Port, "project", exp.ProjectName)
			continue
		}

		hosts, ok := hostsByFarm[exp.FarmID]
		if !ok {
			hosts, err = e.store.ListHosts(ctx, exp.FarmID)
			if err != nil {
				return "", fmt.Errorf("failed to list hosts of farm %q: %w", exp.FarmName, err)
			}
			hostsByFarm[exp.FarmID] = hosts
		}

		labels := map[string]string{
			core.LabelShard:      exp.ShardName,
			core.LabelService:    exp.ServiceName,
			core.LabelProject:    exp.ProjectName,
			core.LabelFarm:       exp.FarmName,
			core.LabelFarmSource: exp.FarmSource,
			core.LabelJob:        exp.Job,
		}
		if exp.Path != "" {
			labels[core.LabelMetricsPath] = exp.Path
		}

		targets := make([]string, 0, len(hosts))
		for _, h := range hosts {
			targets = append(targets, h.Name+":"+strconv.Itoa(exp.Port))
		}
		entries = append(entries, core.DiscoveryEntry{Labels: labels, Targets: targets})
	}
	return encodeDocument(entries)
}
