package prescription

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/prescribe/internal/ledger"
	"github.com/dshills/prescribe/internal/schema"
)

// Result is the outcome of one submission.
type Result struct {
	SubmissionID string
	Accepted     bool
	Violations   []schema.Violation
	// Line is the formatted log line. It is set when validation passed,
	// including when the append then failed.
	Line string
}

// Service validates submissions and appends accepted ones to the prescription
// and remark logs.
type Service struct {
	prescriptions ledger.Appender
	remarks       ledger.Appender
	logger        *zap.Logger
}

// NewService returns a Service writing to the given logs.
func NewService(prescriptions, remarks ledger.Appender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		prescriptions: prescriptions,
		remarks:       remarks,
		logger:        logger,
	}
}

// SubmitPrescription validates rec and, when no rule fails, appends exactly
// one line to the prescription log. Rule violations are reported in the
// Result with a nil error. A non-nil error means validation passed but the
// append failed; it wraps ledger.ErrWrite.
func (s *Service) SubmitPrescription(rec *Record) (Result, error) {
	res := Result{SubmissionID: uuid.New().String()}
	log := s.logger.With(
		zap.String("submission_id", res.SubmissionID),
		zap.String("kind", string(schema.KindPrescription)),
		zap.Int("record_id", rec.ID),
	)

	res.Violations = rec.Validate()
	if len(res.Violations) > 0 {
		log.Debug("prescription rejected", zap.Int("violations", len(res.Violations)))
		return res, nil
	}

	res.Line = rec.Line()
	if err := s.prescriptions.Append(res.Line); err != nil {
		log.Error("prescription append failed", zap.Error(err))
		return res, fmt.Errorf("saving prescription %d: %w", rec.ID, err)
	}

	res.Accepted = true
	log.Info("prescription saved")
	return res, nil
}

// SubmitRemark validates a remark for rec and, when no rule fails, appends it
// to the remark log and records its category on rec. On any failure nothing
// is written and rec is unchanged. Errors follow SubmitPrescription.
func (s *Service) SubmitRemark(rec *Record, text, category string) (Result, error) {
	res := Result{SubmissionID: uuid.New().String()}
	log := s.logger.With(
		zap.String("submission_id", res.SubmissionID),
		zap.String("kind", string(schema.KindRemark)),
		zap.String("category", category),
	)

	res.Violations = rec.ValidateRemark(text, category)
	if len(res.Violations) > 0 {
		log.Debug("remark rejected", zap.Int("violations", len(res.Violations)))
		return res, nil
	}

	res.Line = RemarkLine(text, category)
	if err := s.remarks.Append(res.Line); err != nil {
		log.Error("remark append failed", zap.Error(err))
		return res, fmt.Errorf("saving remark: %w", err)
	}

	c, _ := ParseCategory(category)
	rec.acceptCategory(c)
	res.Accepted = true
	log.Info("remark saved", zap.Int("accepted_categories", len(rec.accepted)))
	return res, nil
}
