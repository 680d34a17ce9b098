package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"api-tester-mcp/internal/service"
	"api-tester-mcp/internal/types"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutput(format string) error {
	if format != outputTable && format != outputJSON {
		return fmt.Errorf("unsupported output format %q, expected table or json", format)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusText(s types.ResultStatus) string {
	switch s {
	case types.StatusPassed:
		return text.FgGreen.Sprint(s)
	case types.StatusFailed:
		return text.FgRed.Sprint(s)
	case types.StatusError:
		return text.FgHiRed.Sprint(s)
	default:
		return text.FgHiBlack.Sprint(s)
	}
}

// renderRun prints one row per result followed by the summary
func renderRun(w io.Writer, sess *types.TestSession, res *service.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("TEST"),
		text.FgHiCyan.Sprint("METHOD"),
		text.FgHiCyan.Sprint("EXPECTED"),
		text.FgHiCyan.Sprint("ACTUAL"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("TIME"),
		text.FgHiCyan.Sprint("DETAIL"),
	})

	for _, r := range res.Results {
		tc, _ := sess.TestCase(r.TestCaseID)
		name := tc.Name
		if name == "" {
			name = r.TestCaseID
		}
		actual := "-"
		if r.ResponseStatus != nil {
			actual = fmt.Sprint(*r.ResponseStatus)
		}
		t.AppendRow(table.Row{
			name,
			tc.Method,
			tc.ExpectedStatus,
			actual,
			statusText(r.Status),
			fmt.Sprintf("%.3fs", r.ExecutionTime),
			text.Trim(r.ErrorMessage, 60),
		})
	}

	s := res.Summary
	t.AppendFooter(table.Row{
		fmt.Sprintf("total %d", s.Total),
		"",
		"",
		"",
		fmt.Sprintf("%d passed, %d failed, %d error, %d skipped", s.Passed, s.Failed, s.Errors, s.Skipped),
		fmt.Sprintf("%.1f%%", s.PassRate),
		"",
	})
	t.Render()

	for _, p := range res.ReportPaths {
		fmt.Fprintf(w, "Report: %s\n", p)
	}
	if res.ReportError != "" {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("Report generation failed:"), res.ReportError)
	}
}

// renderScenarios prints the generated scenarios grouped by category counts
func renderScenarios(w io.Writer, res *service.ScenariosResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("ID"),
		text.FgHiCyan.Sprint("CATEGORY"),
		text.FgHiCyan.Sprint("NAME"),
	})
	for _, sc := range res.Scenarios {
		t.AppendRow(table.Row{sc.ID, sc.Category, sc.Name})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d scenarios", res.ScenariosCount), "", ""})
	t.Render()
}

// renderSetup prints the ingestion summary
func renderSetup(w io.Writer, res *service.IngestResult) {
	fmt.Fprintf(w, "Session %s: %d endpoints (%s)\n", res.SessionID, res.EndpointsCount, res.SpecType)
	fmt.Fprintln(w, res.SetupMessage)
}
