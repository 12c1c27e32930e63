package prescription

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prescribe/internal/ledger"
	"github.com/dshills/prescribe/internal/schema"
)

func validRecord() *Record {
	r := NewRecord()
	r.ID = 5
	r.FirstName = "David"
	r.LastName = "Williams"
	r.Address = "789 Test Rd, VIC, 3002"
	r.Sphere = 5.5
	r.Cylinder = -1.0
	r.Axis = 90
	r.ExaminationDate = time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	r.Optometrist = "Dr. Smith"
	return r
}

func rules(vs []schema.Violation) []schema.Rule {
	out := make([]schema.Rule, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func newTestService() (*Service, *ledger.Memory, *ledger.Memory) {
	presc, remarks := &ledger.Memory{}, &ledger.Memory{}
	return NewService(presc, remarks, nil), presc, remarks
}

// --- Prescription validation ---

func TestValidate_ValidRecord(t *testing.T) {
	assert.Empty(t, validRecord().Validate())
}

func TestValidate_SingleRuleViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Record)
		want   schema.Rule
	}{
		{"short first name", func(r *Record) { r.FirstName = "Joe" }, schema.RuleFirstName},
		{"long first name", func(r *Record) { r.FirstName = "Bartholomewsonne" }, schema.RuleFirstName},
		{"lowercase first name", func(r *Record) { r.FirstName = "david" }, schema.RuleFirstName},
		{"empty first name", func(r *Record) { r.FirstName = "" }, schema.RuleFirstName},
		{"lowercase last name", func(r *Record) { r.LastName = "williams" }, schema.RuleLastName},
		{"short address", func(r *Record) { r.Address = "1 Short St, VIC" }, schema.RuleAddress},
		{"empty address", func(r *Record) { r.Address = "" }, schema.RuleAddress},
		{"sphere below range", func(r *Record) { r.Sphere = -21.0 }, schema.RuleSphere},
		{"sphere above range", func(r *Record) { r.Sphere = 20.01 }, schema.RuleSphere},
		{"sphere NaN", func(r *Record) { r.Sphere = math.NaN() }, schema.RuleSphere},
		{"cylinder above range", func(r *Record) { r.Cylinder = 5.0 }, schema.RuleCylinder},
		{"cylinder below range", func(r *Record) { r.Cylinder = -4.01 }, schema.RuleCylinder},
		{"axis above range", func(r *Record) { r.Axis = 181 }, schema.RuleAxis},
		{"axis negative", func(r *Record) { r.Axis = -0.5 }, schema.RuleAxis},
		{"short optometrist", func(r *Record) { r.Optometrist = "Dr. Al" }, schema.RuleOptometrist},
		{"long optometrist", func(r *Record) { r.Optometrist = "Dr. Maximilian Alexander Smith" }, schema.RuleOptometrist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			got := r.Validate()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Rule)
			assert.NotEmpty(t, got[0].Message)
		})
	}
}

func TestValidate_BoundariesInclusive(t *testing.T) {
	r := validRecord()
	r.FirstName = "Anna"
	r.LastName = "Abcdefghijklmno" // 15
	r.Address = "12345678901234567890"
	r.Sphere = -20.00
	r.Cylinder = 4.00
	r.Axis = 180
	r.Optometrist = "Dr. Jone"
	assert.Empty(t, r.Validate())

	r.Sphere, r.Cylinder, r.Axis = 20.00, -4.00, 0
	r.Optometrist = "Dr. Abcdefghijklmnopqrstu" // 25
	assert.Empty(t, r.Validate())
}

func TestValidate_UnicodeLengthCountsRunes(t *testing.T) {
	r := validRecord()
	r.FirstName = "Éloï" // 4 runes, 6 bytes
	assert.Empty(t, r.Validate())
}

func TestValidate_CollectsAllInFieldOrder(t *testing.T) {
	r := &Record{Sphere: 30, Cylinder: -9, Axis: 200}
	got := r.Validate()
	assert.Equal(t, []schema.Rule{
		schema.RuleFirstName,
		schema.RuleLastName,
		schema.RuleAddress,
		schema.RuleSphere,
		schema.RuleCylinder,
		schema.RuleAxis,
		schema.RuleExaminationDate,
		schema.RuleOptometrist,
	}, rules(got))
}

func TestValidate_MissingDate(t *testing.T) {
	r := validRecord()
	r.ExaminationDate = time.Time{}
	assert.Equal(t, []schema.Rule{schema.RuleExaminationDate}, rules(r.Validate()))
}

func TestValidate_Idempotent(t *testing.T) {
	r := validRecord()
	r.FirstName = "eve"
	r.Axis = 181
	first := r.Validate()
	second := r.Validate()
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

// --- Prescription submission ---

func TestSubmitPrescription_ValidAppendsOneLine(t *testing.T) {
	svc, presc, remarks := newTestService()

	res, err := svc.SubmitPrescription(validRecord())
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Violations)
	assert.NotEmpty(t, res.SubmissionID)

	want := "ID: 5, Name: David Williams, Address: 789 Test Rd, VIC, 3002, Sphere: 5.50, Cylinder: -1.00, Axis: 90.00, Date: 15/11/2024, Optometrist: Dr. Smith"
	assert.Equal(t, []string{want}, presc.Lines())
	assert.Equal(t, want, res.Line)
	assert.Empty(t, remarks.Lines())
}

func TestSubmitPrescription_InvalidSphereWritesNothing(t *testing.T) {
	svc, presc, _ := newTestService()
	r := validRecord()
	r.Sphere = -21.0

	res, err := svc.SubmitPrescription(r)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, []schema.Rule{schema.RuleSphere}, rules(res.Violations))
	assert.Empty(t, res.Line)
	assert.Empty(t, presc.Lines())
}

func TestSubmitPrescription_MissingDateWritesNothing(t *testing.T) {
	svc, presc, _ := newTestService()
	r := validRecord()
	r.ExaminationDate = time.Time{}

	res, err := svc.SubmitPrescription(r)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, []schema.Rule{schema.RuleExaminationDate}, rules(res.Violations))
	assert.Empty(t, presc.Lines())
}

func TestLine_RoundsHalvesAwayFromZero(t *testing.T) {
	tests := []struct {
		sphere, cylinder, axis float64
		want                   string
	}{
		{-1.125, 0.375, 90.625, "Sphere: -1.13, Cylinder: 0.38, Axis: 90.63"},
		{1.125, -0.375, 0.125, "Sphere: 1.13, Cylinder: -0.38, Axis: 0.13"},
		{2.005, -1.005, 45.005, "Sphere: 2.01, Cylinder: -1.01, Axis: 45.01"},
		{-20, 4, 180, "Sphere: -20.00, Cylinder: 4.00, Axis: 180.00"},
		{0.124, -0.25, 0, "Sphere: 0.12, Cylinder: -0.25, Axis: 0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := validRecord()
			r.Sphere, r.Cylinder, r.Axis = tt.sphere, tt.cylinder, tt.axis
			assert.Contains(t, r.Line(), tt.want)
		})
	}
}

func TestSubmitPrescription_RevalidatesCurrentValues(t *testing.T) {
	svc, presc, _ := newTestService()
	r := validRecord()
	r.Cylinder = 5.0

	res, err := svc.SubmitPrescription(r)
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	r.Cylinder = 1.5
	res, err = svc.SubmitPrescription(r)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Len(t, presc.Lines(), 1)

	res, err = svc.SubmitPrescription(r)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Len(t, presc.Lines(), 2)
}

func TestSubmitPrescription_WriteFailure(t *testing.T) {
	presc := &ledger.Memory{Fail: errors.New("disk full")}
	svc := NewService(presc, &ledger.Memory{}, nil)

	res, err := svc.SubmitPrescription(validRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrWrite)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, res.Accepted)
	assert.Empty(t, res.Violations)
	assert.NotEmpty(t, res.Line)
}

func TestSubmitPrescription_FileLogLineCount(t *testing.T) {
	path := t.TempDir() + "/presc.txt"
	svc := NewService(ledger.NewFile(path), &ledger.Memory{}, nil)

	_, err := svc.SubmitPrescription(validRecord())
	require.NoError(t, err)
	before, err := ledger.CountLines(path)
	require.NoError(t, err)

	bad := validRecord()
	bad.Sphere = -21.0
	res, err := svc.SubmitPrescription(bad)
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	after, err := ledger.CountLines(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, after)
}

// --- Remarks ---

const (
	sixWords  = "The doctor was friendly and helpful"
	otherText = "This is a great service overall"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Client", CategoryClient, true},
		{"client", CategoryClient, true},
		{"OPTOMETRIST", CategoryOptometrist, true},
		{"Doctor", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestIsValidRemarkText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{sixWords, true},
		{"  " + sixWords + "  ", true},
		{"The doctor was friendly", false}, // 4 words
		{"the doctor was friendly and helpful", false},
		{"One two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty", true},
		{"One two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty extra", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidRemarkText(tt.text), "%q", tt.text)
	}
}

func TestSubmitRemark_Accepted(t *testing.T) {
	svc, _, remarks := newTestService()
	r := NewRecord()

	res, err := svc.SubmitRemark(r, sixWords, "Optometrist")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, []Category{CategoryOptometrist}, r.AcceptedCategories())
	assert.Equal(t, []string{"Remark: The doctor was friendly and helpful, Category: Optometrist"}, remarks.Lines())
}

func TestSubmitRemark_LowercaseRejected(t *testing.T) {
	svc, _, remarks := newTestService()
	r := NewRecord()

	res, err := svc.SubmitRemark(r, "the doctor was friendly and helpful", "Client")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, []schema.Rule{schema.RuleRemarkText}, rules(res.Violations))
	assert.Empty(t, r.AcceptedCategories())
	assert.Empty(t, remarks.Lines())
}

func TestSubmitRemark_MergedTextMessage(t *testing.T) {
	r := NewRecord()
	// both short and lowercase: still one violation
	got := r.ValidateRemark("friendly staff", "Client")
	assert.Equal(t, []schema.Rule{schema.RuleRemarkText}, rules(got))
}

func TestSubmitRemark_DuplicateCategory(t *testing.T) {
	svc, _, remarks := newTestService()
	r := NewRecord()

	res, err := svc.SubmitRemark(r, sixWords, "Client")
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = svc.SubmitRemark(r, otherText, "Client")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, []schema.Rule{schema.RuleDuplicateCategory}, rules(res.Violations))
	assert.Len(t, remarks.Lines(), 1)
}

func TestSubmitRemark_DuplicateIsCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService()
	r := NewRecord()

	_, err := svc.SubmitRemark(r, sixWords, "Client")
	require.NoError(t, err)

	res, err := svc.SubmitRemark(r, otherText, "client")
	require.NoError(t, err)
	assert.Equal(t, []schema.Rule{schema.RuleDuplicateCategory}, rules(res.Violations))
}

func TestSubmitRemark_LimitIsTerminal(t *testing.T) {
	svc, _, remarks := newTestService()
	r := NewRecord()

	for _, c := range []string{"Client", "optometrist"} {
		res, err := svc.SubmitRemark(r, sixWords, c)
		require.NoError(t, err)
		require.True(t, res.Accepted, c)
	}
	assert.Equal(t, []Category{CategoryClient, CategoryOptometrist}, r.AcceptedCategories())

	tests := []struct {
		name     string
		text     string
		category string
		want     []schema.Rule
	}{
		{"valid text, used category", otherText, "Client",
			[]schema.Rule{schema.RuleDuplicateCategory, schema.RuleCategoryLimit}},
		{"invalid category", otherText, "Doctor",
			[]schema.Rule{schema.RuleRemarkCategory, schema.RuleCategoryLimit}},
		{"everything wrong", "bad", "Doctor",
			[]schema.Rule{schema.RuleRemarkText, schema.RuleRemarkCategory, schema.RuleCategoryLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.SubmitRemark(r, tt.text, tt.category)
			require.NoError(t, err)
			assert.False(t, res.Accepted)
			assert.Equal(t, tt.want, rules(res.Violations))
			assert.Contains(t, rules(res.Violations), schema.RuleCategoryLimit)
		})
	}
	assert.Len(t, remarks.Lines(), 2)
	assert.Len(t, r.AcceptedCategories(), MaxRemarkCategories)
}

func TestSubmitRemark_UnknownCategory(t *testing.T) {
	svc, _, _ := newTestService()
	r := NewRecord()

	res, err := svc.SubmitRemark(r, sixWords, "Doctor")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, []schema.Rule{schema.RuleRemarkCategory}, rules(res.Violations))
}

func TestSubmitRemark_WritesCategoryAsSubmitted(t *testing.T) {
	svc, _, remarks := newTestService()
	r := NewRecord()

	_, err := svc.SubmitRemark(r, sixWords, "cLiEnT")
	require.NoError(t, err)
	assert.Equal(t, []string{RemarkLine(sixWords, "cLiEnT")}, remarks.Lines())
	assert.Equal(t, []Category{CategoryClient}, r.AcceptedCategories())
}

func TestSubmitRemark_WriteFailureLeavesStateUnchanged(t *testing.T) {
	remarks := &ledger.Memory{Fail: errors.New("read-only filesystem")}
	svc := NewService(&ledger.Memory{}, remarks, nil)
	r := NewRecord()

	res, err := svc.SubmitRemark(r, sixWords, "Client")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrWrite)
	assert.False(t, res.Accepted)
	assert.Empty(t, r.AcceptedCategories())

	// The category is still available once the log is writable again.
	remarks.Fail = nil
	res, err = svc.SubmitRemark(r, sixWords, "Client")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestAcceptedCategories_ReturnsCopy(t *testing.T) {
	r := NewRecord()
	r.acceptCategory(CategoryClient)
	got := r.AcceptedCategories()
	got[0] = CategoryOptometrist
	assert.Equal(t, []Category{CategoryClient}, r.AcceptedCategories())
}
