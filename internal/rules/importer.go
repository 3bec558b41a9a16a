package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/promgen/internal/metrics"
	"github.com/leapstack-labs/promgen/pkg/core"
)

// requiredKeywords must be present in every record.
var requiredKeywords = []string{KeywordAlert, KeywordIf, KeywordFor}

// Importer loads rule text into the store.
type Importer struct {
	store  core.Store
	logger *slog.Logger
}

// NewImporter creates an Importer. A nil logger discards output.
func NewImporter(store core.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{store: store, logger: logger}
}

// ParseRules imports every rule in text and returns the entities created.
//
// All records are checked for ALERT, IF and FOR before anything is written.
// Rules are owned by defaultService when given, else by the service named
// in the rule's service label, else by the Default service. A rule whose
// name already exists is left as it is, labels and annotations included.
func (im *Importer) ParseRules(ctx context.Context, text string, defaultService *core.Service) (core.CounterSet, error) {
	records, err := Segment(text)
	if err != nil {
		metrics.ImportErrorsTotal.WithLabelValues("rules").Inc()
		return nil, err
	}
	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			metrics.ImportErrorsTotal.WithLabelValues("rules").Inc()
			return nil, err
		}
	}

	created := core.NewCounterSet()
	for _, rec := range records {
		err := im.store.InTx(ctx, func(inv core.Inventory) error {
			return im.importRecord(ctx, inv, rec, defaultService, created)
		})
		if err != nil {
			metrics.ImportErrorsTotal.WithLabelValues("rules").Inc()
			return created, fmt.Errorf("line %d: %w", rec.Line, err)
		}
	}

	metrics.CountEntities(created.Summary(), nil)
	im.logger.Info("rules imported", "records", len(records), "created", created.String())
	return created, nil
}

func validateRecord(rec Record) error {
	name := rec.Tokens[KeywordAlert]
	for _, kw := range requiredKeywords {
		if _, ok := rec.Get(kw); !ok {
			return &core.MissingFieldError{Field: kw, Line: rec.Line, Rule: name}
		}
	}
	return nil
}

func (im *Importer) importRecord(ctx context.Context, inv core.Inventory, rec Record, defaultService *core.Service, created core.CounterSet) error {
	labels := ParseLabels(rec.Tokens[KeywordLabels])
	annotations := ParseLabels(rec.Tokens[KeywordAnnotations])

	svc, err := im.resolveService(ctx, inv, labels, defaultService)
	if err != nil {
		return err
	}

	rule, ok, err := inv.UpsertRule(ctx, core.RuleSpec{
		Name:     rec.Tokens[KeywordAlert],
		Clause:   rec.Tokens[KeywordIf],
		Duration: rec.Tokens[KeywordFor],
		Owner:    core.ServiceOwner(svc),
	})
	if err != nil {
		return err
	}
	if !ok {
		im.logger.Debug("rule exists, leaving it unchanged", "rule", rule.Name)
		return nil
	}

	// Counters are only touched once every write for the rule succeeded.
	refs := []core.EntityRef{{Kind: core.KindRule, ID: rule.ID, Name: rule.Name}}
	for _, name := range sortedKeys(labels) {
		if err := inv.AddRuleLabel(ctx, rule.ID, name, labels[name]); err != nil {
			return err
		}
		refs = append(refs, core.EntityRef{Kind: core.KindRuleLabel, ID: rule.ID, Name: name})
	}
	for _, name := range sortedKeys(annotations) {
		if err := inv.AddRuleAnnotation(ctx, rule.ID, name, annotations[name]); err != nil {
			return err
		}
		refs = append(refs, core.EntityRef{Kind: core.KindRuleAnnotation, ID: rule.ID, Name: name})
	}
	for _, ref := range refs {
		created.Add(ref)
	}
	im.logger.Debug("created rule", "rule", rule.Name, "owner", svc.Name)
	return nil
}

func (im *Importer) resolveService(ctx context.Context, inv core.Inventory, labels map[string]string, defaultService *core.Service) (*core.Service, error) {
	if defaultService != nil {
		return defaultService, nil
	}

	name, ok := labels[core.LabelService]
	if !ok {
		name = core.DefaultServiceName
	}
	svc, err := inv.GetServiceByName(ctx, name)
	if err == nil {
		return svc, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	return inv.DefaultService(ctx)
}

// Override records child as an override of parent, both given by rule
// name.
func (im *Importer) Override(ctx context.Context, parentName, childName string) error {
	return im.store.InTx(ctx, func(inv core.Inventory) error {
		parent, err := inv.GetRuleByName(ctx, parentName)
		if err != nil {
			return err
		}
		child, err := inv.GetRuleByName(ctx, childName)
		if err != nil {
			return err
		}
		return inv.AddRuleOverride(ctx, parent.ID, child.ID)
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
