package batch

import (
	"fmt"

	"github.com/dshills/prescribe/internal/prescription"
	"github.com/dshills/prescribe/internal/schema"
	"github.com/dshills/prescribe/internal/schema/validate"
)

// Run submits every case of b through svc and returns one CaseResult per
// submission: prescription cases first, then remark steps in session order.
// Failures are recorded in the results, never returned.
func Run(svc *prescription.Service, b *schema.Batch) []schema.CaseResult {
	out := make([]schema.CaseResult, 0, len(b.Prescriptions)+len(b.Remarks))

	for _, c := range b.Prescriptions {
		cr := SubmitPrescription(svc, c.Record)
		cr.Name = c.Name
		cr.Expected = c.Expect
		out = append(out, cr)
	}

	for _, s := range b.Remarks {
		rec := prescription.NewRecord()
		for i, step := range s.Steps {
			cr := SubmitRemark(svc, rec, step.Text, step.Category)
			cr.Name = fmt.Sprintf("%s#%d", s.Name, i+1)
			cr.Expected = step.Expect
			out = append(out, cr)
		}
	}
	return out
}

// SubmitPrescription parses the raw input into a fresh record and submits it.
// A malformed date stops the submission before validation.
func SubmitPrescription(svc *prescription.Service, in schema.RecordInput) schema.CaseResult {
	cr := schema.CaseResult{Kind: schema.KindPrescription}

	date, err := validate.ParseDate(in.ExaminationDate)
	if err != nil {
		cr.Status = schema.StatusInputError
		cr.Violations = []schema.Violation{}
		cr.Error = err.Error()
		return cr
	}

	rec := prescription.NewRecord()
	rec.ID = in.ID
	rec.FirstName = in.FirstName
	rec.LastName = in.LastName
	rec.Address = in.Address
	rec.Sphere = in.Sphere
	rec.Cylinder = in.Cylinder
	rec.Axis = in.Axis
	rec.ExaminationDate = date
	rec.Optometrist = in.Optometrist

	res, err := svc.SubmitPrescription(rec)
	return toCaseResult(cr, res, err)
}

// SubmitRemark submits one remark against rec.
func SubmitRemark(svc *prescription.Service, rec *prescription.Record, text, category string) schema.CaseResult {
	cr := schema.CaseResult{Kind: schema.KindRemark}
	res, err := svc.SubmitRemark(rec, text, category)
	return toCaseResult(cr, res, err)
}

func toCaseResult(cr schema.CaseResult, res prescription.Result, err error) schema.CaseResult {
	cr.SubmissionID = res.SubmissionID
	cr.Violations = res.Violations
	if cr.Violations == nil {
		cr.Violations = []schema.Violation{}
	}
	cr.Line = res.Line

	switch {
	case err != nil:
		cr.Status = schema.StatusWriteError
		cr.Error = err.Error()
	case res.Accepted:
		cr.Status = schema.StatusAccepted
	default:
		cr.Status = schema.StatusRejected
	}
	return cr
}
