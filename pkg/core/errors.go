package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) by store lookups that match no row.
var ErrNotFound = errors.New("not found")

// MalformedTargetError reports a discovery target that is not "host:port".
type MalformedTargetError struct {
	Target string
	Entry  map[string]string
	Reason string
}

func (e *MalformedTargetError) Error() string {
	msg := fmt.Sprintf("malformed target %q", e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Entry) > 0 {
		msg += fmt.Sprintf(" (entry %v)", e.Entry)
	}
	return msg
}

// MissingLabelError reports a discovery entry without a required label.
type MissingLabelError struct {
	Label string
	Entry map[string]string
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("discovery entry %v is missing label %q", e.Entry, e.Label)
}

// MissingFieldError reports a rule record without ALERT, IF or FOR.
type MissingFieldError struct {
	Field string
	Line  int
	Rule  string
}

func (e *MissingFieldError) Error() string {
	name := e.Rule
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("line %d: rule %s is missing %s", e.Line, name, e.Field)
}

// RuleSyntaxError reports a rule-text line that is not "KEYWORD value".
type RuleSyntaxError struct {
	Line int
	Text string
}

func (e *RuleSyntaxError) Error() string {
	return fmt.Sprintf("line %d: expected \"KEYWORD value\", got %q", e.Line, e.Text)
}

// UnknownDurationUnitError reports a silence duration with a suffix other
// than m, h or d.
type UnknownDurationUnitError struct {
	Duration string
}

func (e *UnknownDurationUnitError) Error() string {
	return fmt.Sprintf("unknown time modifier in duration %q (want m, h or d)", e.Duration)
}

// ValidationError reports rendered rules rejected by the external checker.
// Rendered and Output are kept whole so operators can see what failed.
type ValidationError struct {
	Rendered string
	Output   string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule validation failed: %v\n%s\n%s", e.Err, e.Rendered, e.Output)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SilenceRejectedError reports a non-success response from the alert
// manager silence endpoint.
type SilenceRejectedError struct {
	StatusCode int
	Body       string
}

func (e *SilenceRejectedError) Error() string {
	return fmt.Sprintf("silence rejected: HTTP %d: %s", e.StatusCode, e.Body)
}

// ReloadError reports a non-success response from the reload endpoint.
type ReloadError struct {
	StatusCode int
	Body       string
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload failed: HTTP %d: %s", e.StatusCode, e.Body)
}
