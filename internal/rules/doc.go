// Package rules imports, renders and validates alerting rules.
//
// Import reads the line-oriented legacy dialect:
//
//	ALERT InstanceDown
//	  IF up == 0
//	  FOR 5m
//	  LABELS {severity="page"}
//	  ANNOTATIONS {summary="Instance down"}
//
// Rendering goes through a Formatter so the output grammar (Prometheus 2.x
// YAML groups or the legacy dialect) can change without touching import.
package rules
