package render

import (
	"bytes"
	"fmt"

	"github.com/dshills/prescribe/internal/schema"
)

type textRenderer struct{}

// Render writes one block per case: its status line, then either the saved
// log line or every violation message.
func (r *textRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range report.Cases {
		name := c.Name
		if name == "" {
			name = string(c.Kind)
		}
		fmt.Fprintf(&buf, "%s [%s]: %s", name, c.Kind, c.Status)
		if c.Expected != "" && !c.Matches() {
			fmt.Fprintf(&buf, " (expected %s)", c.Expected)
		}
		buf.WriteString("\n")

		switch c.Status {
		case schema.StatusAccepted:
			fmt.Fprintf(&buf, "  saved: %s\n", c.Line)
		case schema.StatusRejected:
			for _, v := range c.Violations {
				fmt.Fprintf(&buf, "  - %s\n", v.Message)
			}
		default:
			fmt.Fprintf(&buf, "  error: %s\n", c.Error)
		}
	}

	if report.Summary.Total != 1 {
		s := report.Summary
		fmt.Fprintf(&buf, "\n%s: %d case(s), %d accepted, %d rejected, %d input error(s), %d write error(s), %d mismatch(es)\n",
			s.Verdict, s.Total, s.Accepted, s.Rejected, s.InputErrors, s.WriteErrors, s.Mismatches)
	}
	return buf.Bytes(), nil
}
