// Package core defines the shared language of the promgen system.
//
// This package contains:
//   - Inventory entities (Shard, Service, Farm, Project, Host, Exporter, URL)
//   - Alert rules and their polymorphic owners
//   - The Store contract consumed by the reconciler and the rule importer
//   - CounterSet, the created/skipped report returned by imports
//   - The error taxonomy shared by every component
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
