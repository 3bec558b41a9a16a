package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// inventory implements core.Inventory over a *sql.DB or a *sql.Tx.
type inventory struct {
	q querier
}

// insertIgnore runs an INSERT ... ON CONFLICT DO NOTHING statement and
// reports whether a row was written.
func (i *inventory) insertIgnore(ctx context.Context, query string, args ...any) (bool, error) {
	if i.q == nil {
		return false, errNotOpened
	}
	res, err := i.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// --- Shard operations ---

// UpsertShard returns the shard named name, creating it when missing.
func (i *inventory) UpsertShard(ctx context.Context, name string) (*core.Shard, bool, error) {
	created, err := i.insertIgnore(ctx,
		`INSERT INTO shards (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		generateID(), name,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert shard %q: %w", name, err)
	}

	shard := &core.Shard{}
	err = i.q.QueryRowContext(ctx, `SELECT id, name FROM shards WHERE name = ?`, name).
		Scan(&shard.ID, &shard.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read shard %q: %w", name, err)
	}
	return shard, created, nil
}

// --- Service operations ---

// UpsertService returns the service named name. shardID is only used when
// the service is created.
func (i *inventory) UpsertService(ctx context.Context, name, shardID string) (*core.Service, bool, error) {
	created, err := i.insertIgnore(ctx,
		`INSERT INTO services (id, name, shard_id) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		generateID(), name, shardID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert service %q: %w", name, err)
	}

	svc, err := i.GetServiceByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return svc, created, nil
}

// GetServiceByName retrieves a service by name.
func (i *inventory) GetServiceByName(ctx context.Context, name string) (*core.Service, error) {
	if i.q == nil {
		return nil, errNotOpened
	}

	svc := &core.Service{}
	err := i.q.QueryRowContext(ctx, `SELECT id, name, shard_id FROM services WHERE name = ?`, name).
		Scan(&svc.ID, &svc.Name, &svc.ShardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service %q: %w", name, err)
	}
	return svc, nil
}

// DefaultService returns the Default service, creating it (and the Default
// shard) when missing.
func (i *inventory) DefaultService(ctx context.Context) (*core.Service, error) {
	shard, _, err := i.UpsertShard(ctx, core.DefaultShardName)
	if err != nil {
		return nil, err
	}
	svc, _, err := i.UpsertService(ctx, core.DefaultServiceName, shard.ID)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// --- Farm operations ---

// UpsertFarm returns the farm named name. source is only used when the farm
// is created.
func (i *inventory) UpsertFarm(ctx context.Context, name, source string) (*core.Farm, bool, error) {
	if source == "" {
		source = core.DefaultFarmSource
	}
	created, err := i.insertIgnore(ctx,
		`INSERT INTO farms (id, name, source) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		generateID(), name, source,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert farm %q: %w", name, err)
	}

	farm := &core.Farm{}
	err = i.q.QueryRowContext(ctx, `SELECT id, name, source FROM farms WHERE name = ?`, name).
		Scan(&farm.ID, &farm.Name, &farm.Source)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read farm %q: %w", name, err)
	}
	return farm, created, nil
}

// --- Project operations ---

// UpsertProject returns the project (name, serviceID). farmID is only used
// when the project is created.
func (i *inventory) UpsertProject(ctx context.Context, name, serviceID string, farmID *string) (*core.Project, bool, error) {
	created, err := i.insertIgnore(ctx,
		`INSERT INTO projects (id, name, service_id, farm_id) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name, service_id) DO NOTHING`,
		generateID(), name, serviceID, farmID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert project %q: %w", name, err)
	}

	project, err := i.GetProject(ctx, name, serviceID)
	if err != nil {
		return nil, false, err
	}
	return project, created, nil
}

// GetProject retrieves a project by name within a service.
func (i *inventory) GetProject(ctx context.Context, name, serviceID string) (*core.Project, error) {
	if i.q == nil {
		return nil, errNotOpened
	}

	project := &core.Project{}
	var farmID sql.NullString
	err := i.q.QueryRowContext(ctx,
		`SELECT id, name, service_id, farm_id FROM projects WHERE name = ? AND service_id = ?`,
		name, serviceID,
	).Scan(&project.ID, &project.Name, &project.ServiceID, &farmID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %q: %w", name, err)
	}
	if farmID.Valid {
		project.FarmID = &farmID.String
	}
	return project, nil
}

// RelinkProjectFarm points an existing project at farmID.
func (i *inventory) RelinkProjectFarm(ctx context.Context, projectID, farmID string) error {
	if i.q == nil {
		return errNotOpened
	}

	res, err := i.q.ExecContext(ctx,
		`UPDATE projects SET farm_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		farmID, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to relink project %s: %w", projectID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", projectID, core.ErrNotFound)
	}
	return nil
}

// --- Host operations ---

// UpsertHost returns the host (name, farmID), creating it when missing.
func (i *inventory) UpsertHost(ctx context.Context, name, farmID string) (*core.Host, bool, error) {
	created, err := i.insertIgnore(ctx,
		`INSERT INTO hosts (id, name, farm_id) VALUES (?, ?, ?) ON CONFLICT (name, farm_id) DO NOTHING`,
		generateID(), name, farmID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert host %q: %w", name, err)
	}

	host := &core.Host{}
	err = i.q.QueryRowContext(ctx,
		`SELECT id, name, farm_id FROM hosts WHERE name = ? AND farm_id = ?`, name, farmID,
	).Scan(&host.ID, &host.Name, &host.FarmID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read host %q: %w", name, err)
	}
	return host, created, nil
}

// --- Exporter operations ---

// UpsertExporter returns the exporter (job, port, projectID, path),
// creating it enabled when missing.
func (i *inventory) UpsertExporter(ctx context.Context, job string, port int, projectID, path string) (*core.Exporter, bool, error) {
	created, err := i.insertIgnore(ctx,
		`INSERT INTO exporters (id, job, port, project_id, path) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (job, port, project_id, path) DO NOTHING`,
		generateID(), job, port, projectID, path,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert exporter %s:%d: %w", job, port, err)
	}

	exp := &core.Exporter{}
	var enabled int
	err = i.q.QueryRowContext(ctx,
		`SELECT id, job, port, path, project_id, enabled FROM exporters
		 WHERE job = ? AND port = ? AND project_id = ? AND path = ?`,
		job, port, projectID, path,
	).Scan(&exp.ID, &exp.Job, &exp.Port, &exp.Path, &exp.ProjectID, &enabled)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read exporter %s:%d: %w", job, port, err)
	}
	exp.Enabled = enabled != 0
	return exp, created, nil
}

// --- URL operations ---

// UpsertURL returns the URL (url, projectID), creating it when missing.
func (i *inventory) UpsertURL(ctx context.Context, url, projectID string) (*core.URL, bool, error) {
	created, err := i.insertIgnore(ctx,
		`INSERT INTO urls (id, url, project_id) VALUES (?, ?, ?) ON CONFLICT (url, project_id) DO NOTHING`,
		generateID(), url, projectID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert url %q: %w", url, err)
	}

	u := &core.URL{}
	err = i.q.QueryRowContext(ctx,
		`SELECT id, url, project_id FROM urls WHERE url = ? AND project_id = ?`, url, projectID,
	).Scan(&u.ID, &u.URL, &u.ProjectID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read url %q: %w", url, err)
	}
	return u, created, nil
}
