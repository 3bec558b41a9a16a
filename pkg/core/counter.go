package core

import (
	"sort"
	"strconv"
	"strings"
)

// Kind names an entity type in the inventory.
type Kind string

// Entity kinds.
const (
	KindShard          Kind = "Shard"
	KindService        Kind = "Service"
	KindFarm           Kind = "Farm"
	KindProject        Kind = "Project"
	KindHost           Kind = "Host"
	KindExporter       Kind = "Exporter"
	KindURL            Kind = "URL"
	KindRule           Kind = "Rule"
	KindRuleLabel      Kind = "RuleLabel"
	KindRuleAnnotation Kind = "RuleAnnotation"
)

// EntityRef identifies one entity touched by an import.
type EntityRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.Name
}

// CounterSet is a multi-set of entity references keyed by kind. Imports
// return one for created entities and one for entities that already
// existed.
type CounterSet map[Kind][]EntityRef

// NewCounterSet returns an empty CounterSet.
func NewCounterSet() CounterSet {
	return make(CounterSet)
}

// Add records ref under its kind.
func (c CounterSet) Add(ref EntityRef) {
	c[ref.Kind] = append(c[ref.Kind], ref)
}

// Record adds ref to created or skipped depending on wasCreated.
func Record(created, skipped CounterSet, ref EntityRef, wasCreated bool) {
	if wasCreated {
		created.Add(ref)
		return
	}
	skipped.Add(ref)
}

// Count returns the number of references recorded for kind.
func (c CounterSet) Count(kind Kind) int {
	return len(c[kind])
}

// Total returns the number of references across all kinds.
func (c CounterSet) Total() int {
	n := 0
	for _, refs := range c {
		n += len(refs)
	}
	return n
}

// Empty reports whether no references were recorded.
func (c CounterSet) Empty() bool {
	return c.Total() == 0
}

// Kinds returns the recorded kinds in alphabetical order.
func (c CounterSet) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c))
	for k, refs := range c {
		if len(refs) > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Summary returns per-kind counts.
func (c CounterSet) Summary() map[string]int {
	out := make(map[string]int, len(c))
	for _, k := range c.Kinds() {
		out[string(k)] = len(c[k])
	}
	return out
}

// Merge appends every reference of other into c.
func (c CounterSet) Merge(other CounterSet) {
	for k, refs := range other {
		c[k] = append(c[k], refs...)
	}
}

func (c CounterSet) String() string {
	parts := make([]string, 0, len(c))
	for _, k := range c.Kinds() {
		parts = append(parts, string(k)+"="+strconv.Itoa(len(c[k])))
	}
	return strings.Join(parts, " ")
}

