package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// ruleColumns selects a rule with its owner name resolved from whichever
// table the owner kind points at.
const ruleColumns = `
	SELECT r.id, r.name, r.clause, r.duration, r.enabled, r.owner_kind, r.owner_id,
	       COALESCE(s.name, p.name, f.name, '')
	FROM rules r
	LEFT JOIN services s ON r.owner_kind = 'service' AND s.id = r.owner_id
	LEFT JOIN projects p ON r.owner_kind = 'project' AND p.id = r.owner_id
	LEFT JOIN farms f ON r.owner_kind = 'farm' AND f.id = r.owner_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*core.Rule, error) {
	rule := &core.Rule{}
	var enabled int
	var ownerKind string
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Clause, &rule.Duration, &enabled,
		&ownerKind, &rule.Owner.ID, &rule.Owner.Name); err != nil {
		return nil, err
	}
	rule.Enabled = enabled != 0
	rule.Owner.Kind = core.OwnerKind(ownerKind)
	return rule, nil
}

// UpsertRule returns the rule named spec.Name. The clause, duration and
// owner in spec are only applied when the rule is created.
func (i *inventory) UpsertRule(ctx context.Context, spec core.RuleSpec) (*core.Rule, bool, error) {
	if !spec.Owner.Kind.Valid() {
		return nil, false, fmt.Errorf("rule %q has invalid owner kind %q", spec.Name, spec.Owner.Kind)
	}

	created, err := i.insertIgnore(ctx,
		`INSERT INTO rules (id, name, clause, duration, owner_kind, owner_id) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		generateID(), spec.Name, spec.Clause, spec.Duration, string(spec.Owner.Kind), spec.Owner.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert rule %q: %w", spec.Name, err)
	}

	rule, err := i.GetRuleByName(ctx, spec.Name)
	if err != nil {
		return nil, false, err
	}
	return rule, created, nil
}

// GetRuleByName retrieves a rule with its labels and annotations.
func (i *inventory) GetRuleByName(ctx context.Context, name string) (*core.Rule, error) {
	if i.q == nil {
		return nil, errNotOpened
	}

	rule, err := scanRule(i.q.QueryRowContext(ctx, ruleColumns+` WHERE r.name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule %q: %w", name, err)
	}

	byID := map[string]*core.Rule{rule.ID: rule}
	if err := loadRulePairs(ctx, i.q, byID); err != nil {
		return nil, err
	}
	return rule, nil
}

// AddRuleLabel appends a label to a rule.
func (i *inventory) AddRuleLabel(ctx context.Context, ruleID, name, value string) error {
	if i.q == nil {
		return errNotOpened
	}
	_, err := i.q.ExecContext(ctx,
		`INSERT INTO rule_labels (rule_id, name, value) VALUES (?, ?, ?)`, ruleID, name, value)
	if err != nil {
		return fmt.Errorf("failed to add label %s to rule %s: %w", name, ruleID, err)
	}
	return nil
}

// AddRuleAnnotation appends an annotation to a rule.
func (i *inventory) AddRuleAnnotation(ctx context.Context, ruleID, name, value string) error {
	if i.q == nil {
		return errNotOpened
	}
	_, err := i.q.ExecContext(ctx,
		`INSERT INTO rule_annotations (rule_id, name, value) VALUES (?, ?, ?)`, ruleID, name, value)
	if err != nil {
		return fmt.Errorf("failed to add annotation %s to rule %s: %w", name, ruleID, err)
	}
	return nil
}

// AddRuleOverride records childID as an override of parentID. Adding the
// same pair twice is a no-op.
func (i *inventory) AddRuleOverride(ctx context.Context, parentID, childID string) error {
	if parentID == childID {
		return fmt.Errorf("rule %s cannot override itself", parentID)
	}
	if _, err := i.insertIgnore(ctx,
		`INSERT INTO rule_overrides (parent_id, child_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		parentID, childID,
	); err != nil {
		return fmt.Errorf("failed to add override %s -> %s: %w", parentID, childID, err)
	}
	return nil
}

// ListRules returns rules ordered by name with labels, annotations and
// overrides attached. Overrides pointing at rules outside the result are
// dropped.
func (s *SQLiteStore) ListRules(ctx context.Context, enabledOnly bool) ([]*core.Rule, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		ruleColumns+` WHERE (? = 0 OR r.enabled = 1) ORDER BY r.name`, boolToInt(enabledOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	var rules []*core.Rule
	byID := make(map[string]*core.Rule)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
		byID[rule.ID] = rule
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	_ = rows.Close()

	if err := loadRulePairs(ctx, s.db, byID); err != nil {
		return nil, err
	}
	if err := loadRuleOverrides(ctx, s.db, byID); err != nil {
		return nil, err
	}
	return rules, nil
}

// loadRulePairs attaches labels and annotations to the rules in byID.
// Rows are read fully before the next query; the pool has one connection.
func loadRulePairs(ctx context.Context, q querier, byID map[string]*core.Rule) error {
	if len(byID) == 0 {
		return nil
	}

	for _, table := range []string{"rule_labels", "rule_annotations"} {
		rows, err := q.QueryContext(ctx, `SELECT rule_id, name, value FROM `+table+` ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", table, err)
		}
		for rows.Next() {
			var ruleID string
			var pair core.Pair
			if err := rows.Scan(&ruleID, &pair.Name, &pair.Value); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan %s: %w", table, err)
			}
			rule, ok := byID[ruleID]
			if !ok {
				continue
			}
			if table == "rule_labels" {
				rule.Labels = append(rule.Labels, pair)
			} else {
				rule.Annotations = append(rule.Annotations, pair)
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return fmt.Errorf("failed to iterate %s: %w", table, err)
		}
	}
	return nil
}

func loadRuleOverrides(ctx context.Context, q querier, byID map[string]*core.Rule) error {
	if len(byID) == 0 {
		return nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT o.parent_id, o.child_id FROM rule_overrides o
		 JOIN rules c ON c.id = o.child_id ORDER BY c.name`)
	if err != nil {
		return fmt.Errorf("failed to read rule overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var parentID, childID string
		if err := rows.Scan(&parentID, &childID); err != nil {
			return fmt.Errorf("failed to scan rule override: %w", err)
		}
		parent, ok := byID[parentID]
		if !ok {
			continue
		}
		if child, ok := byID[childID]; ok {
			parent.Overrides = append(parent.Overrides, child)
		}
	}
	return rows.Err()
}
