package discovery

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// ParseDiscoveryDocument decodes a JSON array of {labels, targets} records.
func ParseDiscoveryDocument(data []byte) ([]core.DiscoveryEntry, error) {
	var entries []core.DiscoveryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return entries, nil
}

// encodeDocument sorts entries and their targets and renders them as
// indented JSON. Map keys are sorted by encoding/json.
func encodeDocument(entries []core.DiscoveryEntry) (string, error) {
	for i := range entries {
		sort.Strings(entries[i].Targets)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return canonicalLabels(entries[i].Labels) < canonicalLabels(entries[j].Labels)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode discovery document: %w", err)
	}
	return string(data), nil
}

// canonicalLabels renders labels as name=value pairs in name order.
func canonicalLabels(labels map[string]string) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(labels[name]))
		b.WriteByte(',')
	}
	return b.String()
}

// target is a parsed "host:port" string.
type target struct {
	host string
	port int
}

// parseTarget splits raw on the first colon.
func parseTarget(raw string, entry map[string]string) (target, error) {
	host, portText, ok := strings.Cut(raw, ":")
	if !ok {
		return target{}, &core.MalformedTargetError{Target: raw, Entry: entry, Reason: "missing port"}
	}
	if host == "" {
		return target{}, &core.MalformedTargetError{Target: raw, Entry: entry, Reason: "empty host"}
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return target{}, &core.MalformedTargetError{Target: raw, Entry: entry, Reason: "port is not a number"}
	}
	if port < 1 || port > 65535 {
		return target{}, &core.MalformedTargetError{Target: raw, Entry: entry, Reason: "port out of range"}
	}
	return target{host: host, port: port}, nil
}
