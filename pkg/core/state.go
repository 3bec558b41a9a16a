package core

import "context"

// Inventory is the upsert contract over the entity hierarchy. Every Upsert
// method inserts the row if its identifying key is free and otherwise
// returns the existing row untouched; created reports which happened.
// Concurrent identical upserts have exactly one creator.
type Inventory interface {
	UpsertShard(ctx context.Context, name string) (shard *Shard, created bool, err error)
	// UpsertService uses shardID only when the service is created.
	UpsertService(ctx context.Context, name, shardID string) (svc *Service, created bool, err error)
	// UpsertFarm uses source only when the farm is created.
	UpsertFarm(ctx context.Context, name, source string) (farm *Farm, created bool, err error)
	// UpsertProject uses farmID only when the project is created.
	UpsertProject(ctx context.Context, name, serviceID string, farmID *string) (project *Project, created bool, err error)
	// RelinkProjectFarm points an existing project at another farm.
	RelinkProjectFarm(ctx context.Context, projectID, farmID string) error
	UpsertHost(ctx context.Context, name, farmID string) (host *Host, created bool, err error)
	UpsertExporter(ctx context.Context, job string, port int, projectID, path string) (exporter *Exporter, created bool, err error)
	UpsertURL(ctx context.Context, url, projectID string) (u *URL, created bool, err error)

	// UpsertRule applies spec only when the rule is created.
	UpsertRule(ctx context.Context, spec RuleSpec) (rule *Rule, created bool, err error)
	AddRuleLabel(ctx context.Context, ruleID, name, value string) error
	AddRuleAnnotation(ctx context.Context, ruleID, name, value string) error
	AddRuleOverride(ctx context.Context, parentID, childID string) error

	GetServiceByName(ctx context.Context, name string) (*Service, error)
	GetProject(ctx context.Context, name, serviceID string) (*Project, error)
	GetRuleByName(ctx context.Context, name string) (*Rule, error)
	// DefaultService returns the Default service in the Default shard,
	// creating either when missing.
	DefaultService(ctx context.Context) (*Service, error)
}

// Store is the persistent inventory.
type Store interface {
	Inventory

	// InTx runs fn against a transactional view of the store. The changes
	// made through inv are committed when fn returns nil and rolled back
	// otherwise.
	InTx(ctx context.Context, fn func(inv Inventory) error) error

	ListExporterTargets(ctx context.Context) ([]ExporterTarget, error)
	ListHosts(ctx context.Context, farmID string) ([]Host, error)
	ListURLTargets(ctx context.Context) ([]URLTarget, error)
	ListRules(ctx context.Context, enabledOnly bool) ([]*Rule, error)
	SetExporterEnabled(ctx context.Context, exporterID string, enabled bool) error
	Counts(ctx context.Context) (InventoryCounts, error)

	Close() error
}
