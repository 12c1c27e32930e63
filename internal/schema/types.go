package schema

// DateLayout is the dd/mm/yyyy layout examination dates are read and logged in.
const DateLayout = "02/01/2006"

// Report is the top-level output structure for a submission or a batch run.
type Report struct {
	Tool    string       `json:"tool"`
	Version string       `json:"version"`
	Input   Input        `json:"input"`
	Summary Summary      `json:"summary"`
	Cases   []CaseResult `json:"cases"`
}

// Input captures the parameters used for this run.
type Input struct {
	Sources         []string `json:"sources"`          // batch files, or "flags" for a single submission
	SourceHashes    []string `json:"source_hashes"`    // "sha256:<hex>" per batch file
	PrescriptionLog string   `json:"prescription_log"` // resolved path
	RemarkLog       string   `json:"remark_log"`
}

// Summary holds the computed verdict and per-status counts.
// Counts always reflect every case, before any --only-mismatches filtering.
type Summary struct {
	Verdict     Verdict `json:"verdict"`
	Total       int     `json:"total"`
	Accepted    int     `json:"accepted"`
	Rejected    int     `json:"rejected"`
	InputErrors int     `json:"input_errors"`
	WriteErrors int     `json:"write_errors"`
	Mismatches  int     `json:"mismatches"`
}

// Verdict is the overall outcome of a batch run.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// Kind distinguishes the two submission operations.
type Kind string

const (
	KindPrescription Kind = "prescription"
	KindRemark       Kind = "remark"
)

// Status is the outcome of one submission attempt.
type Status string

const (
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"    // business-rule violations
	StatusInputError Status = "input_error" // rejected before validation (e.g. malformed date)
	StatusWriteError Status = "write_error" // valid, but the log append failed
)

// Rule identifies a single validation rule.
type Rule string

const (
	RuleFirstName         Rule = "first_name"
	RuleLastName          Rule = "last_name"
	RuleAddress           Rule = "address"
	RuleSphere            Rule = "sphere"
	RuleCylinder          Rule = "cylinder"
	RuleAxis              Rule = "axis"
	RuleExaminationDate   Rule = "examination_date"
	RuleOptometrist       Rule = "optometrist"
	RuleRemarkText        Rule = "remark_text"
	RuleRemarkCategory    Rule = "remark_category"
	RuleDuplicateCategory Rule = "duplicate_category"
	RuleCategoryLimit     Rule = "category_limit"
)

// Violation is one failed validation rule with its human-readable description.
type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// CaseResult is the outcome of one submission, with the expectation when it came from a batch file.
type CaseResult struct {
	Name         string      `json:"name"`
	Kind         Kind        `json:"kind"`
	SubmissionID string      `json:"submission_id,omitempty"`
	Expected     Status      `json:"expected,omitempty"`
	Status       Status      `json:"status"`
	Violations   []Violation `json:"violations"`
	Line         string      `json:"line,omitempty"` // the appended (or attempted) log line
	Error        string      `json:"error,omitempty"`
}

// Matches reports whether the case met its expectation. Cases without an
// expectation always match.
func (c CaseResult) Matches() bool {
	return c.Expected == "" || c.Expected == c.Status
}

// Batch is a data-driven list of submissions with expected outcomes.
type Batch struct {
	Prescriptions []PrescriptionCase `json:"prescriptions"`
	Remarks       []RemarkSession    `json:"remarks"`
}

// PrescriptionCase submits one record on a fresh record instance.
type PrescriptionCase struct {
	Name   string      `json:"name"`
	Expect Status      `json:"expect"`
	Record RecordInput `json:"record"`
}

// RecordInput carries prescription fields as supplied. ExaminationDate is
// still unparsed ("dd/mm/yyyy").
type RecordInput struct {
	ID              int     `json:"id"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Address         string  `json:"address"`
	Sphere          float64 `json:"sphere"`
	Cylinder        float64 `json:"cylinder"`
	Axis            float64 `json:"axis"`
	ExaminationDate string  `json:"examinationDate"`
	Optometrist     string  `json:"optometrist"`
}

// RemarkSession submits its steps in order against one record instance, so
// accepted categories accumulate across steps.
type RemarkSession struct {
	Name  string       `json:"name"`
	Steps []RemarkStep `json:"steps"`
}

// RemarkStep is one remark submission.
type RemarkStep struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Expect   Status `json:"expect"`
}
