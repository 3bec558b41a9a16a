package core

// Label names understood in discovery documents.
const (
	LabelShard       = "__shard"
	LabelService     = "service"
	LabelProject     = "project"
	LabelFarm        = "farm"
	LabelFarmSource  = "__farm_source"
	LabelJob         = "job"
	LabelMetricsPath = "__metrics_path__"
)

// DiscoveryEntry is one record of a file_sd style document: a label set and
// the "host:port" targets it applies to.
type DiscoveryEntry struct {
	Labels  map[string]string `json:"labels"`
	Targets []string          `json:"targets"`
}

// Label returns the value for name, or def when it is missing or empty.
func (e DiscoveryEntry) Label(name, def string) string {
	if v, ok := e.Labels[name]; ok && v != "" {
		return v
	}
	return def
}
