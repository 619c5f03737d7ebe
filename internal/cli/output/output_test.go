package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeAuto},
		{in: "text", want: ModeText},
		{in: "Markdown", want: ModeMarkdown},
		{in: "md", want: ModeMarkdown},
		{in: "json", want: ModeJSON},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{name: "auto tty", mode: ModeAuto, isTTY: true, want: ModeText},
		{name: "auto pipe", mode: ModeAuto, isTTY: false, want: ModeMarkdown},
		{name: "explicit text", mode: ModeText, isTTY: false, want: ModeText},
		{name: "explicit json", mode: ModeJSON, isTTY: true, want: ModeJSON},
		{name: "empty", mode: "", isTTY: true, want: ModeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_NonFileIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestRenderer_Markdown(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeMarkdown)

	r.Header(1, "Validation")
	r.KeyValues([][2]string{{"Rows in", "4"}})
	r.Table([]string{"row", "check"}, [][]any{{1, "greater_than_or_equal_to(0)"}})
	r.Success("done")
	r.Error("boom")

	s := out.String()
	assert.Contains(t, s, "# Validation")
	assert.Contains(t, s, "- **Rows in:** 4")
	assert.Contains(t, s, "| row | check |")
	assert.Contains(t, s, "| 1 | greater_than_or_equal_to(0) |")
	assert.Contains(t, s, "[ok] done")
	assert.Contains(t, errOut.String(), "[error] boom")
}

func TestRenderer_Text(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText)

	r.Table([]string{"feature", "score"}, [][]any{{"trip_distance", "0.1200"}})
	r.StatusLine("feature_label", "failed", "score 0.97 > 0.90")

	s := out.String()
	assert.Contains(t, s, "trip_distance")
	assert.Contains(t, s, "┌")
	assert.Contains(t, s, "[fail] feature_label")
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"rows": 2}))
	assert.JSONEq(t, `{"rows": 2}`, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Summary", FormatHeader(2, "Summary"))
	assert.Equal(t, "# Summary", FormatHeader(0, "Summary"))
	assert.Equal(t, "- **Status:** passed", FormatKeyValue("Status", "passed"))
}
