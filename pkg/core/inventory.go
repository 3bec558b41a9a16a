package core

// Default names applied when discovery data leaves a field unset.
const (
	DefaultShardName   = "Default"
	DefaultServiceName = "Default"
	DefaultFarmSource  = "pmc"
)

// Shard is the top-level grouping of monitoring targets, usually one
// Prometheus deployment.
type Shard struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is a logical application grouping owned by a Shard.
// ShardID is assigned when the service is created and never rewritten by
// imports.
type Service struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ShardID string `json:"shard_id"`
}

// Farm is a named collection of hosts from a discovery source.
type Farm struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Project is a deployable unit within a Service. FarmID is nil when the
// project has not been linked to a farm yet.
type Project struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ServiceID string  `json:"service_id"`
	FarmID    *string `json:"farm_id,omitempty"`
}

// HasFarm reports whether the project is linked to farmID.
func (p *Project) HasFarm(farmID string) bool {
	return p.FarmID != nil && *p.FarmID == farmID
}

// Host is a machine that belongs to exactly one Farm.
type Host struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	FarmID string `json:"farm_id"`
}

// Exporter is a scrape endpoint definition scoped to a Project.
type Exporter struct {
	ID        string `json:"id"`
	Job       string `json:"job"`
	Port      int    `json:"port"`
	Path      string `json:"path"`
	ProjectID string `json:"project_id"`
	Enabled   bool   `json:"enabled"`
}

// URL is a probe target attached to a Project.
type URL struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ProjectID string `json:"project_id"`
}

// ExporterTarget is an Exporter joined with its owning hierarchy, as needed
// to render scrape configuration.
type ExporterTarget struct {
	Exporter
	ProjectName string
	ServiceName string
	ShardName   string
	// Farm fields are empty when the project has no farm.
	FarmID     string
	FarmName   string
	FarmSource string
}

// URLTarget is a URL joined with its project, service and shard names.
type URLTarget struct {
	URL         string
	ProjectName string
	ServiceName string
	ShardName   string
}

// InventoryCounts summarizes the number of rows per entity kind.
type InventoryCounts map[Kind]int
