package rules

import (
	"testing"

	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount int
		wantLines []int
	}{
		{
			name: "two alerts",
			text: `ALERT A
  IF up == 0
  FOR 5m
ALERT B
  IF up == 1
  FOR 1m`,
			wantCount: 2,
			wantLines: []int{1, 4},
		},
		{
			name:      "zero alerts still yields one record",
			text:      "IF up == 0\nFOR 5m\n",
			wantCount: 1,
			wantLines: []int{1},
		},
		{
			name:      "empty text",
			text:      "",
			wantCount: 1,
			wantLines: []int{1},
		},
		{
			name: "comments and blank lines",
			text: `# header

ALERT A
  # inline comment
  IF up == 0

  FOR 5m
`,
			wantCount: 1,
			wantLines: []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Segment(tt.text)
			require.NoError(t, err)
			require.Len(t, records, tt.wantCount)
			for i, line := range tt.wantLines {
				assert.Equal(t, line, records[i].Line)
			}
		})
	}
}

func TestSegment_Values(t *testing.T) {
	records, err := Segment("ALERT  HighLoad\n  IF\tload > 2 and on() up\n  FOR 10m\n")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, map[string]string{
		"ALERT": "HighLoad",
		"IF":    "load > 2 and on() up",
		"FOR":   "10m",
	}, records[0].Tokens)
}

func TestSegment_KeywordWithoutValue(t *testing.T) {
	_, err := Segment("ALERT A\n  IF up == 0\n  FOR\n")

	var syntaxErr *core.RuleSyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 3, syntaxErr.Line)
	assert.Equal(t, "FOR", syntaxErr.Text)
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{name: "braced", in: `{service="api",env="prod"}`, want: map[string]string{"service": "api", "env": "prod"}},
		{name: "spaces", in: `  { severity = "page" , team="ops" }  `, want: map[string]string{"severity": "page", "team": "ops"}},
		{name: "no separators", in: `a="1"b="2"`, want: map[string]string{"a": "1", "b": "2"}},
		{name: "value with spaces", in: `{summary="Instance {{ $labels.instance }} down"}`, want: map[string]string{"summary": "Instance {{ $labels.instance }} down"}},
		{name: "empty", in: "", want: map[string]string{}},
		{name: "unquoted ignored", in: `{a=1}`, want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabels(tt.in))
		})
	}
}
