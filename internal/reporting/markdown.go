package reporting

import (
	"fmt"
	"strings"
	"time"

	"oil-forecast/internal/domain"
)

// RenderMarkdown renders the report as a Markdown table.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	res := r.Result

	sb.WriteString(fmt.Sprintf("# Oil Forecast – Brent / WTI (%s)\n\n", r.Label))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339)))

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Data date | %s |\n", res.DataDate.Format(domain.DateLayout)))
	sb.WriteString(fmt.Sprintf("| Policy | %s |\n", res.Policy))
	sb.WriteString(fmt.Sprintf("| Brent close | %s |\n", res.BrentClose.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| WTI close | %s |\n", res.WTIClose.StringFixed(2)))
	if res.Spread != nil {
		sb.WriteString(fmt.Sprintf("| Brent–WTI spread | %s |\n", res.Spread.StringFixed(2)))
	}
	sb.WriteString(fmt.Sprintf("| Prob UP | %s%% |\n", percent(res.ProbUp)))
	sb.WriteString(fmt.Sprintf("| Prob DOWN | %s%% |\n", percent(res.ProbDown)))
	sb.WriteString(fmt.Sprintf("| Signal | **%s** |\n", res.Signal))

	return sb.String()
}
