package output_test

import (
	"encoding/json"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/cli/testutil"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    output.Mode
		wantErr bool
	}{
		{"", output.ModeAuto, false},
		{"auto", output.ModeAuto, false},
		{"text", output.ModeText, false},
		{"markdown", output.ModeMarkdown, false},
		{"json", output.ModeJSON, false},
		{"html", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := output.ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_AutoIsMarkdownWhenPiped(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeAuto)
	assert.False(t, tr.IsTTY())
	assert.Equal(t, output.ModeMarkdown, tr.EffectiveMode())

	tr.Header(1, "Rules")
	tr.Header(2, "Load errors")
	assert.Equal(t, "# Rules\n\n## Load errors\n\n", tr.Output())
}

func TestRenderer_TextHasNoANSIWhenPiped(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText)
	tr.Header(1, "Rules")
	tr.Success("done")
	tr.Muted("quiet")
	tr.Warning("careful")
	tr.Error("broken")

	testutil.AssertNoANSI(t, tr.Output())
	testutil.AssertNoANSI(t, tr.ErrorOutput())
	assert.Contains(t, tr.Output(), "✓ done")
	assert.Contains(t, tr.Output(), "quiet")
	assert.Equal(t, "! careful\n✗ broken\n", tr.ErrorOutput())
}

func TestRenderer_JSON(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeJSON)
	require.NoError(t, tr.JSON(output.LintSummary{Files: 2, Errors: 1}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Equal(t, float64(2), got["files"])
	assert.Contains(t, tr.Output(), "\n  ", "JSON is indented")
}

func TestLintSummary_Total(t *testing.T) {
	s := output.LintSummary{Errors: 1, Warnings: 2, Infos: 3, Hints: 4, Suppressed: 5, Failed: 6}
	assert.Equal(t, 10, s.Total())
}

func TestFrame(t *testing.T) {
	styles := output.NewStyles(termenv.Ascii)
	src := []byte("let a = 1;\ndebugger;\nlet b = 2;\n")

	tests := []struct {
		name                             string
		startLine, startCol, endLine, ec int
		want                             string
	}{
		{
			name:      "single line with marker",
			startLine: 2, startCol: 1, endLine: 2, ec: 10,
			want: "2 │ debugger;\n    ^^^^^^^^^",
		},
		{
			name:      "range without marker",
			startLine: 1, endLine: 2,
			want: "1 │ let a = 1;\n2 │ debugger;",
		},
		{
			name:      "end clamped to source",
			startLine: 3, endLine: 9,
			want: "3 │ let b = 2;\n4 │ ",
		},
		{
			name:      "empty range",
			startLine: 3, endLine: 2,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := output.Frame(styles, src, tt.startLine, tt.startCol, tt.endLine, tt.ec)
			assert.Equal(t, tt.want, got)
		})
	}
}
