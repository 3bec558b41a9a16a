package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// ListExporterTargets returns every exporter joined with its project,
// service, shard and (when linked) farm.
func (s *SQLiteStore) ListExporterTargets(ctx context.Context) ([]core.ExporterTarget, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.job, e.port, e.path, e.project_id, e.enabled,
		       p.name, sv.name, sh.name,
		       f.id, f.name, f.source
		FROM exporters e
		JOIN projects p ON p.id = e.project_id
		JOIN services sv ON sv.id = p.service_id
		JOIN shards sh ON sh.id = sv.shard_id
		LEFT JOIN farms f ON f.id = p.farm_id
		ORDER BY sh.name, sv.name, p.name, e.job, e.port, e.path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exporters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var targets []core.ExporterTarget
	for rows.Next() {
		var t core.ExporterTarget
		var enabled int
		var farmID, farmName, farmSource sql.NullString
		if err := rows.Scan(&t.ID, &t.Job, &t.Port, &t.Path, &t.ProjectID, &enabled,
			&t.ProjectName, &t.ServiceName, &t.ShardName,
			&farmID, &farmName, &farmSource); err != nil {
			return nil, fmt.Errorf("failed to scan exporter: %w", err)
		}
		t.Enabled = enabled != 0
		t.FarmID = farmID.String
		t.FarmName = farmName.String
		t.FarmSource = farmSource.String
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// ListHosts returns the hosts of a farm ordered by name.
func (s *SQLiteStore) ListHosts(ctx context.Context, farmID string) ([]core.Host, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, farm_id FROM hosts WHERE farm_id = ? ORDER BY name`, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hosts []core.Host
	for rows.Next() {
		var h core.Host
		if err := rows.Scan(&h.ID, &h.Name, &h.FarmID); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// ListURLTargets returns every URL with its project, service and shard.
func (s *SQLiteStore) ListURLTargets(ctx context.Context) ([]core.URLTarget, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.url, p.name, sv.name, sh.name
		FROM urls u
		JOIN projects p ON p.id = u.project_id
		JOIN services sv ON sv.id = p.service_id
		JOIN shards sh ON sh.id = sv.shard_id
		ORDER BY sh.name, sv.name, p.name, u.url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var urls []core.URLTarget
	for rows.Next() {
		var u core.URLTarget
		if err := rows.Scan(&u.URL, &u.ProjectName, &u.ServiceName, &u.ShardName); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// SetExporterEnabled toggles whether an exporter is rendered into the
// scrape configuration.
func (s *SQLiteStore) SetExporterEnabled(ctx context.Context, exporterID string, enabled bool) error {
	if s.db == nil {
		return errNotOpened
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE exporters SET enabled = ? WHERE id = ?`, boolToInt(enabled), exporterID)
	if err != nil {
		return fmt.Errorf("failed to update exporter %s: %w", exporterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exporter %s: %w", exporterID, core.ErrNotFound)
	}
	return nil
}

var countTables = []struct {
	kind  core.Kind
	table string
}{
	{core.KindShard, "shards"},
	{core.KindService, "services"},
	{core.KindFarm, "farms"},
	{core.KindProject, "projects"},
	{core.KindHost, "hosts"},
	{core.KindExporter, "exporters"},
	{core.KindURL, "urls"},
	{core.KindRule, "rules"},
	{core.KindRuleLabel, "rule_labels"},
	{core.KindRuleAnnotation, "rule_annotations"},
}

// Counts returns the number of rows per entity kind.
func (s *SQLiteStore) Counts(ctx context.Context) (core.InventoryCounts, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	counts := make(core.InventoryCounts, len(countTables))
	for _, ct := range countTables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+ct.table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", ct.table, err)
		}
		counts[ct.kind] = n
	}
	return counts, nil
}
