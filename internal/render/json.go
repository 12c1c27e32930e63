package render

import (
	"encoding/json"

	"github.com/dshills/prescribe/internal/schema"
)

type jsonRenderer struct{}

// Render emits indented JSON. Nil case and violation lists encode as [].
func (r *jsonRenderer) Render(report *schema.Report) ([]byte, error) {
	out := *report
	if out.Cases == nil {
		out.Cases = []schema.CaseResult{}
	}
	cases := make([]schema.CaseResult, len(out.Cases))
	for i, c := range out.Cases {
		if c.Violations == nil {
			c.Violations = []schema.Violation{}
		}
		cases[i] = c
	}
	out.Cases = cases

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
