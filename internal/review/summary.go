package review

import "github.com/dshills/prescribe/internal/schema"

// Summarize computes per-status counts, mismatches and the verdict from all
// cases. It is always computed before any --only-mismatches filtering.
func Summarize(cases []schema.CaseResult) schema.Summary {
	s := schema.Summary{Total: len(cases)}
	for _, c := range cases {
		switch c.Status {
		case schema.StatusAccepted:
			s.Accepted++
		case schema.StatusRejected:
			s.Rejected++
		case schema.StatusInputError:
			s.InputErrors++
		case schema.StatusWriteError:
			s.WriteErrors++
		}
		if !c.Matches() {
			s.Mismatches++
		}
	}
	s.Verdict = Verdict(cases)
	return s
}

// Verdict is PASS when every case met its expectation.
// A write error fails the run even for cases without an expectation.
func Verdict(cases []schema.CaseResult) schema.Verdict {
	for _, c := range cases {
		if !c.Matches() || c.Status == schema.StatusWriteError {
			return schema.VerdictFail
		}
	}
	return schema.VerdictPass
}

// OnlyMismatches returns the cases whose status differs from their expectation.
func OnlyMismatches(cases []schema.CaseResult) []schema.CaseResult {
	out := make([]schema.CaseResult, 0, len(cases))
	for _, c := range cases {
		if !c.Matches() {
			out = append(out, c)
		}
	}
	return out
}
