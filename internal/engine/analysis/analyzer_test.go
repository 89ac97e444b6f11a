package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/engine/analysis"
)

func TestAnalyzer_AnalyzeCommand(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	tests := []struct {
		name string
		src  string
		want domain.CommandDeps
	}{
		{
			name: "literal has no deps",
			src:  "12",
			want: domain.CommandDeps{},
		},
		{
			name: "call references function and argument",
			src:  "negate(a)",
			want: domain.CommandDeps{Refs: []string{"a", "negate"}},
		},
		{
			name: "nested calls",
			src:  "combine(negate(a), scale(b, 2))",
			want: domain.CommandDeps{Refs: []string{"a", "b", "combine", "negate", "scale"}},
		},
		{
			name: "file_in records a path instead of a reference",
			src:  `summarize(file_in("data.csv"))`,
			want: domain.CommandDeps{Refs: []string{"summarize"}, FileIns: []string{"data.csv"}},
		},
		{
			name: "file_out and doc_in",
			src:  `render(doc_in("report.md#setup"), file_out("report.txt"))`,
			want: domain.CommandDeps{
				Refs:     []string{"render"},
				FileOuts: []string{"report.txt"},
				DocIns:   []string{"report.md#setup"},
			},
		},
		{
			name: "marker with non-literal argument is an ordinary call",
			src:  "file_in(path)",
			want: domain.CommandDeps{Refs: []string{"file_in", "path"}},
		},
		{
			name: "selector base is qualified, not a plain ref",
			src:  "math.Abs(x)",
			want: domain.CommandDeps{Refs: []string{"x"}, Qualified: []string{"math"}},
		},
		{
			name: "plain use beats qualified classification",
			src:  "combine(cfg, cfg.Threshold)",
			want: domain.CommandDeps{Refs: []string{"cfg", "combine"}},
		},
		{
			name: "predeclared identifiers are not deps",
			src:  "len(append(xs, 1))",
			want: domain.CommandDeps{Refs: []string{"xs"}},
		},
		{
			name: "func literal parameters are bound",
			src:  "apply(func(x int) int { return x + offset }, a)",
			want: domain.CommandDeps{Refs: []string{"a", "apply", "offset"}},
		},
		{
			name: "func literal local does not hide an outer reference",
			src:  "func() int { x := 1; return x }() + x",
			want: domain.CommandDeps{Refs: []string{"x"}},
		},
		{
			name: "func literal parameter does not hide an outer argument",
			src:  "apply(func(a int) int { return a }, a)",
			want: domain.CommandDeps{Refs: []string{"a", "apply"}},
		},
		{
			name: "struct literal keys are not references",
			src:  "Config{Threshold: limit}",
			want: domain.CommandDeps{Refs: []string{"Config", "limit"}},
		},
		{
			name: "duplicates collapse",
			src:  "add(a, a, a)",
			want: domain.CommandDeps{Refs: []string{"a", "add"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := a.AnalyzeCommand(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzer_AnalyzeCommand_ParseFailure(t *testing.T) {
	t.Parallel()

	a := analysis.New()
	_, err := a.AnalyzeCommand("negate(a")
	require.ErrorIs(t, err, domain.ErrAnalysis)
}

func TestAnalyzer_AnalyzeSource(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	tests := []struct {
		name string
		src  string
		want domain.CommandDeps
	}{
		{
			name: "function body references helper",
			src:  "func double(x float64) float64 { return scale(x, 2) }",
			want: domain.CommandDeps{Refs: []string{"scale"}},
		},
		{
			name: "locals and parameters are not deps",
			src: `func mean(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}`,
			want: domain.CommandDeps{},
		},
		{
			name: "var declaration with initializer",
			src:  "var threshold = baseline * 2",
			want: domain.CommandDeps{Refs: []string{"baseline"}},
		},
		{
			name: "markers inside a body",
			src:  `func load() string { return parse(file_in("raw.csv")) }`,
			want: domain.CommandDeps{Refs: []string{"parse"}, FileIns: []string{"raw.csv"}},
		},
		{
			name: "package qualifier stays qualified",
			src:  "func root(x float64) float64 { return math.Sqrt(x) }",
			want: domain.CommandDeps{Qualified: []string{"math"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := a.AnalyzeSource(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, analysis.Normalize("negate(a)"), analysis.Normalize("negate( a )"))
	assert.Equal(t, analysis.Normalize("a+b"), analysis.Normalize("a + b"))
	assert.NotEqual(t, analysis.Normalize("negate(a)"), analysis.Normalize("negate(b)"))

	// Unparsable input falls back to trimmed source.
	assert.Equal(t, "negate(a", analysis.Normalize("  negate(a  "))
}
