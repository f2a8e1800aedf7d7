package reporting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

const (
	rule          = "==================================="
	runTimeLayout = "2006-01-02 15:04:05"
)

var hundred = decimal.NewFromInt(100)

// RenderText renders the plain-text report. Lines are joined with "\n" and
// there is no trailing newline.
func RenderText(r *Report) string {
	res := r.Result
	lines := []string{
		rule,
		fmt.Sprintf("   OIL FORECAST – BRENT / WTI (%s)", r.Label),
		rule,
		fmt.Sprintf("Run time (UTC): %s UTC", r.GeneratedAt.UTC().Format(runTimeLayout)),
		fmt.Sprintf("Data date     : %s", res.DataDate.Format(domain.DateLayout)),
		"",
		fmt.Sprintf("Brent Close   : %s", res.BrentClose.StringFixed(2)),
		fmt.Sprintf("WTI Close     : %s", res.WTIClose.StringFixed(2)),
	}
	if res.Spread != nil {
		lines = append(lines, fmt.Sprintf("Brent–WTI Spd : %s", res.Spread.StringFixed(2)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Prob UP       : %s%%", percent(res.ProbUp)),
		fmt.Sprintf("Prob DOWN     : %s%%", percent(res.ProbDown)),
		fmt.Sprintf("Signal        : %s", res.Signal),
		rule,
	)
	return strings.Join(lines, "\n")
}

func percent(p decimal.Decimal) string {
	return p.Mul(hundred).StringFixed(2)
}
