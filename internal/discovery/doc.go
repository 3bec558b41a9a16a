// Package discovery moves inventory in and out of file_sd style discovery
// documents.
//
// The Reconciler imports documents into the store, creating the shard,
// service, farm, project, host and exporter rows they describe. The
// Exporter is its inverse: it renders the store back into documents that
// Prometheus reads as scrape targets. Importing an export creates nothing.
package discovery
