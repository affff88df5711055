package report

import (
	"bytes"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/entrhq/bddrun/pkg/results"
)

// FormatSummary renders per-feature counts as a table.
func FormatSummary(s results.Summary) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle("Scenario Results")
	t.AppendHeader(table.Row{"FEATURE", "PASSED", "FAILED", "RETRIED", "STATUS"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "FEATURE", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "PASSED", Align: text.AlignRight},
		{Name: "FAILED", Align: text.AlignRight},
		{Name: "RETRIED", Align: text.AlignRight},
	})

	retried := 0
	for _, f := range s.Features {
		retried += f.Retried
		t.AppendRow(table.Row{f.Name, f.Passed, f.Failed, f.Retried, status(f.Failed)})
	}

	t.AppendFooter(table.Row{"TOTAL", s.Passed, s.Failed, retried, status(s.Failed)})
	t.SetStyle(table.StyleLight)
	t.Render()

	return strings.TrimRight(buf.String(), "\n")
}

func status(failed int) string {
	if failed > 0 {
		return "FAIL"
	}
	return "PASS"
}
