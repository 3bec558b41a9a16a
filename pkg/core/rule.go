package core

import "fmt"

// OwnerKind tags which inventory entity owns a Rule.
type OwnerKind string

// Owner kinds. The values double as the label name the owner contributes to
// rendered rules.
const (
	OwnerService OwnerKind = "service"
	OwnerProject OwnerKind = "project"
	OwnerFarm    OwnerKind = "farm"
)

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerService, OwnerProject, OwnerFarm:
		return true
	}
	return false
}

// Owner is a tagged reference to the Service, Project or Farm a Rule
// belongs to. Name is filled in on reads for rendering.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
	Name string    `json:"name,omitempty"`
}

// ServiceOwner returns an Owner pointing at svc.
func ServiceOwner(svc *Service) Owner {
	return Owner{Kind: OwnerService, ID: svc.ID, Name: svc.Name}
}

// ProjectOwner returns an Owner pointing at p.
func ProjectOwner(p *Project) Owner {
	return Owner{Kind: OwnerProject, ID: p.ID, Name: p.Name}
}

// FarmOwner returns an Owner pointing at f.
func FarmOwner(f *Farm) Owner {
	return Owner{Kind: OwnerFarm, ID: f.ID, Name: f.Name}
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.Name)
}

// Pair is a name/value entry attached to a rule.
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Rule is an alerting rule. Clause and Duration are carried as opaque
// strings.
type Rule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Clause      string `json:"clause"`
	Duration    string `json:"duration"`
	Enabled     bool   `json:"enabled"`
	Owner       Owner  `json:"owner"`
	Labels      []Pair `json:"labels,omitempty"`
	Annotations []Pair `json:"annotations,omitempty"`
	// Overrides are the rules that narrow this one for a more specific
	// owner. Populated on reads by ListRules.
	Overrides []*Rule `json:"overrides,omitempty"`
}

// RuleSpec carries the values applied when a rule is created.
type RuleSpec struct {
	Name     string
	Clause   string
	Duration string
	Owner    Owner
}
