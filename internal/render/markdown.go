package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/prescribe/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Parse(`# Prescribe Report

**Verdict:** {{ .Summary.Verdict }}
**Total:** {{ .Summary.Total }} | **Accepted:** {{ .Summary.Accepted }} | **Rejected:** {{ .Summary.Rejected }} | **Input errors:** {{ .Summary.InputErrors }} | **Write errors:** {{ .Summary.WriteErrors }} | **Mismatches:** {{ .Summary.Mismatches }}
> Note: counts reflect all cases; --only-mismatches may hide some from this output.
{{ if .Cases }}
---

## Cases
{{ range .Cases }}
### {{ .Name }} · {{ .Kind }} · {{ .Status }}{{ if .Expected }} (expected {{ .Expected }}){{ end }}
{{ if .Line }}
` + "```" + `
{{ .Line }}
` + "```" + `
{{ end }}{{ range .Violations }}
- **{{ .Rule }}**: {{ .Message }}{{ end }}{{ if .Error }}
**Error:** {{ .Error }}
{{ end }}
{{ end }}{{ end }}
---
*Logs: {{ .Input.PrescriptionLog }}, {{ .Input.RemarkLog }} | {{ .Tool }} {{ .Version }}*
`))

func (r *markdownRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
