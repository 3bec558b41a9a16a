package rules

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/leapstack-labs/promgen/pkg/core"
	"gopkg.in/yaml.v3"
)

// ExcludeMacro in a clause is replaced by negative matchers for the
// owners of the rule's overrides.
const ExcludeMacro = "<exclude>"

// Formatter renders rules into a rule file.
type Formatter interface {
	Format(rules []*core.Rule) (string, error)
}

// NewFormatter returns the formatter registered under name ("yaml" or
// "legacy").
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "", "yaml":
		return YAMLFormatter{}, nil
	case "legacy":
		return NewLegacyFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown rule format %q", name)
	}
}

// ExpandClause replaces ExcludeMacro in the rule's clause with
// kind!~"a|b" matchers built from its overrides, one per owner kind, in
// kind order.
func ExpandClause(rule *core.Rule) string {
	if !strings.Contains(rule.Clause, ExcludeMacro) {
		return rule.Clause
	}

	byKind := map[core.OwnerKind][]string{}
	for _, o := range rule.Overrides {
		byKind[o.Owner.Kind] = append(byKind[o.Owner.Kind], o.Owner.Name)
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	matchers := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names := byKind[core.OwnerKind(k)]
		sort.Strings(names)
		matchers = append(matchers, k+`!~"`+strings.Join(names, "|")+`"`)
	}
	return strings.ReplaceAll(rule.Clause, ExcludeMacro, strings.Join(matchers, ","))
}

// RenderLabels returns the rule's labels plus the owner label, which
// replaces any stored label of the same name.
func RenderLabels(rule *core.Rule) map[string]string {
	labels := pairsToMap(rule.Labels)
	if rule.Owner.Kind.Valid() && rule.Owner.Name != "" {
		labels[string(rule.Owner.Kind)] = rule.Owner.Name
	}
	return labels
}

func pairsToMap(pairs []core.Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Name] = p.Value
	}
	return m
}

// --- YAML ---

type ruleFile struct {
	Groups []ruleGroup `yaml:"groups"`
}

type ruleGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// YAMLFormatter renders Prometheus 2.x rule groups, one group per owner.
type YAMLFormatter struct{}

// Format implements Formatter.
func (YAMLFormatter) Format(rules []*core.Rule) (string, error) {
	byGroup := map[string][]alertRule{}
	for _, r := range rules {
		group := r.Owner.String()
		byGroup[group] = append(byGroup[group], alertRule{
			Alert:       r.Name,
			Expr:        ExpandClause(r),
			For:         r.Duration,
			Labels:      RenderLabels(r),
			Annotations: pairsToMap(r.Annotations),
		})
	}

	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)

	file := ruleFile{Groups: make([]ruleGroup, 0, len(names))}
	for _, name := range names {
		file.Groups = append(file.Groups, ruleGroup{Name: name, Rules: byGroup[name]})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return "", fmt.Errorf("failed to encode rule file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode rule file: %w", err)
	}
	return buf.String(), nil
}

// --- Legacy ---

const legacyTemplate = `{{- range . }}
# {{ .Owner }}
ALERT {{ .Name }}
  IF {{ expand . }}
  FOR {{ .Duration }}
  LABELS {{ braces (labels .) }}
{{- with .Annotations }}
  ANNOTATIONS {{ braces (pairs .) }}
{{- end }}
{{ end -}}
`

// LegacyFormatter renders the ALERT/IF/FOR dialect that Importer reads.
// Label and annotation values containing a double quote or a line break
// cannot be expressed in it; Format fails on them.
type LegacyFormatter struct {
	tmpl *template.Template
}

// NewLegacyFormatter parses the legacy rule template.
func NewLegacyFormatter() *LegacyFormatter {
	tmpl := template.Must(template.New("rules").Funcs(template.FuncMap{
		"expand": ExpandClause,
		"labels": RenderLabels,
		"pairs":  pairsToMap,
		"braces": braces,
	}).Parse(legacyTemplate))
	return &LegacyFormatter{tmpl: tmpl}
}

// Format implements Formatter.
func (f *LegacyFormatter) Format(rules []*core.Rule) (string, error) {
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, rules); err != nil {
		return "", fmt.Errorf("failed to render rule file: %w", err)
	}
	return buf.String(), nil
}

// braces renders m as {a="1", b="2"} in key order. Values are written
// verbatim since the importer reads up to the next double quote without
// unescaping; a value holding a quote or a line break is rejected.
func braces(m map[string]string) (string, error) {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		v := m[k]
		if strings.ContainsAny(v, "\"\r\n") {
			return "", fmt.Errorf("%s=%q: the legacy format cannot hold double quotes or line breaks", k, v)
		}
		parts = append(parts, k+`="`+v+`"`)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}
