package scaling

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"foreman/internal/api"
)

// Table renders the study history as the human-facing summary stored in
// the step result.
func Table(records []api.ScalingRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Scaling study")
	t.AppendHeader(table.Row{"Size", "Figure of Merit"})
	for _, rec := range records {
		fom := rec.FigureOfMerit
		if fom == "" {
			fom = "(not measured)"
		}
		t.AppendRow(table.Row{rec.Size, fom})
	}
	return t.Render()
}
