package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table writes rows under the given headers: a light box table in text
// mode, a markdown table otherwise. JSON callers render their own values.
func (r *Renderer) Table(headers []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

// KeyValues writes label/value pairs: aligned columns in text mode,
// markdown list items otherwise.
func (r *Renderer) KeyValues(pairs [][2]string) {
	if r.EffectiveMode() == ModeMarkdown {
		for _, p := range pairs {
			r.Println(FormatKeyValue(p[0], p[1]))
		}
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	t.SetStyle(style)
	for _, p := range pairs {
		t.AppendRow(table.Row{r.styles.Key.Render(p[0]), p[1]})
	}
	t.Render()
}
