package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/prescribe/internal/batch"
	"github.com/dshills/prescribe/internal/config"
	"github.com/dshills/prescribe/internal/ledger"
	"github.com/dshills/prescribe/internal/prescription"
	"github.com/dshills/prescribe/internal/render"
	"github.com/dshills/prescribe/internal/review"
	"github.com/dshills/prescribe/internal/schema"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitRejected   = 2 // business-rule violations, batch mismatches, rewritten log
	exitInput      = 3 // bad flags, config, batch file or date
	exitWriteError = 4 // a log append failed
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath      string
	envFile         string
	prescriptionLog string
	remarkLog       string
	format          string
	out             string
	verbose         bool
}

// prescriptionFlags holds the parsed flags for prescription add.
type prescriptionFlags struct {
	id          int
	firstName   string
	lastName    string
	address     string
	sphere      float64
	cylinder    float64
	axis        float64
	date        string
	optometrist string
}

// remarkFlags holds the parsed flags for remark add. texts[i] pairs with categories[i].
type remarkFlags struct {
	texts      []string
	categories []string
}

// runFlags holds the parsed flags for run.
type runFlags struct {
	onlyMismatches bool
	failOnMismatch bool
}

// verifyFlags holds the parsed flags for verify.
type verifyFlags struct {
	snapshot string
	log      string
}

func main() {
	var g globalFlags
	root := &cobra.Command{
		Use:           "prescribe",
		Short:         "Validate and log optometric prescriptions and remarks",
		Long:          "prescribe validates prescription records and remarks against fixed rules and appends accepted ones to append-only text logs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file consulted for unset PRESCRIBE_* variables")
	pf.StringVar(&g.prescriptionLog, "prescription-log", "", "Prescription log path (default presc.txt)")
	pf.StringVar(&g.remarkLog, "remark-log", "", "Remark log path (default remark.txt)")
	pf.StringVar(&g.format, "format", "", "Output format: text, json or md (default text)")
	pf.StringVar(&g.out, "out", "", "Write output to file instead of stdout")
	pf.BoolVar(&g.verbose, "verbose", false, "Log processing steps to stderr")

	root.AddCommand(
		newPrescriptionCmd(&g),
		newRemarkCmd(&g),
		newRunCmd(&g),
		newVerifyCmd(&g),
	)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newPrescriptionCmd(g *globalFlags) *cobra.Command {
	var flags prescriptionFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Validate a prescription and append it to the prescription log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrescriptionAdd(*g, flags)
		},
	}
	f := add.Flags()
	f.IntVar(&flags.id, "id", 0, "Prescription ID")
	f.StringVar(&flags.firstName, "first-name", "", "Client first name (4-15 chars, uppercase first letter)")
	f.StringVar(&flags.lastName, "last-name", "", "Client last name (4-15 chars, uppercase first letter)")
	f.StringVar(&flags.address, "address", "", "Client address (at least 20 chars)")
	f.Float64Var(&flags.sphere, "sphere", 0, "Sphere, -20.00 to 20.00")
	f.Float64Var(&flags.cylinder, "cylinder", 0, "Cylinder, -4.00 to 4.00")
	f.Float64Var(&flags.axis, "axis", 0, "Axis, 0 to 180")
	f.StringVar(&flags.date, "date", "", "Examination date, DD/MM/YYYY")
	f.StringVar(&flags.optometrist, "optometrist", "", "Optometrist name (8-25 chars)")

	cmd := &cobra.Command{Use: "prescription", Short: "Prescription records"}
	cmd.AddCommand(add)
	return cmd
}

func newRemarkCmd(g *globalFlags) *cobra.Command {
	var flags remarkFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Validate remarks for one record and append them to the remark log",
		Long:  "Each --text pairs with the --category at the same position. All pairs are submitted in order against a single record, so at most one remark per category is accepted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemarkAdd(*g, flags)
		},
	}
	f := add.Flags()
	f.StringArrayVar(&flags.texts, "text", nil, "Remark text, 6-20 words starting uppercase (may be repeated)")
	f.StringArrayVar(&flags.categories, "category", nil, "Remark category: Client or Optometrist (may be repeated)")

	cmd := &cobra.Command{Use: "remark", Short: "Remarks"}
	cmd.AddCommand(add)
	return cmd
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <batch-file>...",
		Short: "Submit every case in one or more batch files and compare with expectations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, *g, flags)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.onlyMismatches, "only-mismatches", false, "Only output cases that did not meet their expectation")
	f.BoolVar(&flags.failOnMismatch, "fail-on-mismatch", false, "Exit 2 if any case did not meet its expectation")
	return cmd
}

func newVerifyCmd(g *globalFlags) *cobra.Command {
	var flags verifyFlags
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a log has only been appended to since a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(*g, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.snapshot, "snapshot", "", "Earlier copy of the log")
	f.StringVar(&flags.log, "log", "prescription", "Which log to check: prescription or remark")
	return cmd
}

func runPrescriptionAdd(g globalFlags, flags prescriptionFlags) error {
	cfg, logger, err := setup(g)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	svc := newService(cfg, logger)
	cr := batch.SubmitPrescription(svc, schema.RecordInput{
		ID:              flags.id,
		FirstName:       flags.firstName,
		LastName:        flags.lastName,
		Address:         flags.address,
		Sphere:          flags.sphere,
		Cylinder:        flags.cylinder,
		Axis:            flags.axis,
		ExaminationDate: flags.date,
		Optometrist:     flags.optometrist,
	})

	cases := []schema.CaseResult{cr}
	if err := writeReport(g, cfg, newReport(cfg, cases, []string{"flags"}, nil)); err != nil {
		return err
	}
	return statusError(cases)
}

func runRemarkAdd(g globalFlags, flags remarkFlags) error {
	if len(flags.texts) == 0 {
		return codeError(exitInput, "invalid flags: at least one --text is required")
	}
	if len(flags.texts) != len(flags.categories) {
		return codeError(exitInput, "invalid flags: got %d --text but %d --category", len(flags.texts), len(flags.categories))
	}

	cfg, logger, err := setup(g)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	svc := newService(cfg, logger)
	rec := prescription.NewRecord()
	cases := make([]schema.CaseResult, 0, len(flags.texts))
	for i := range flags.texts {
		cr := batch.SubmitRemark(svc, rec, flags.texts[i], flags.categories[i])
		cr.Name = fmt.Sprintf("remark#%d", i+1)
		cases = append(cases, cr)
	}

	if err := writeReport(g, cfg, newReport(cfg, cases, []string{"flags"}, nil)); err != nil {
		return err
	}
	return statusError(cases)
}

func runBatch(paths []string, g globalFlags, flags runFlags) error {
	cfg, logger, err := setup(g)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Debug("loading batch files", zap.Strings("paths", paths))
	files, err := batch.LoadAll(paths)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}

	svc := newService(cfg, logger)
	var cases []schema.CaseResult
	hashes := make([]string, 0, len(files))
	for _, f := range files {
		results := batch.Run(svc, f.Batch)
		if len(files) > 1 {
			for i := range results {
				results[i].Name = filepath.Base(f.Path) + ":" + results[i].Name
			}
		}
		cases = append(cases, results...)
		hashes = append(hashes, f.Hash)
	}

	// Summary counts reflect every case; filtering only affects the listed cases.
	report := newReport(cfg, cases, paths, hashes)
	if flags.onlyMismatches {
		report.Cases = review.OnlyMismatches(report.Cases)
	}
	if err := writeReport(g, cfg, report); err != nil {
		return err
	}

	if report.Summary.WriteErrors > 0 {
		return codeError(exitWriteError, "%d submission(s) could not be written", report.Summary.WriteErrors)
	}
	if flags.failOnMismatch && report.Summary.Verdict == schema.VerdictFail {
		return codeError(exitRejected, "%d case(s) did not meet their expectation", report.Summary.Mismatches)
	}
	return nil
}

func runVerify(g globalFlags, flags verifyFlags) error {
	if flags.snapshot == "" {
		return codeError(exitInput, "invalid flags: --snapshot is required")
	}
	cfg, logger, err := setup(g)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	var path string
	switch flags.log {
	case "prescription":
		path = cfg.PrescriptionLog
	case "remark":
		path = cfg.RemarkLog
	default:
		return codeError(exitInput, "invalid flags: --log must be prescription or remark, got %q", flags.log)
	}

	snapshot, err := os.ReadFile(flags.snapshot)
	if err != nil {
		return codeError(exitInput, "reading snapshot: %s", err)
	}
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return codeError(exitInput, "reading log: %s", err)
	}

	logger.Debug("verifying log", zap.String("log", path), zap.String("snapshot", flags.snapshot))
	v, verr := ledger.Verify(string(snapshot), string(current))
	if verr != nil {
		if werr := writeOutput(g.out, []byte(v.Patch)); werr != nil {
			return werr
		}
		return codeError(exitRejected, "%s: %s", path, verr)
	}

	out := fmt.Sprintf("OK: %s has %d line(s) appended since %s\n", path, len(v.Appended), flags.snapshot)
	for _, line := range v.Appended {
		out += "  " + line + "\n"
	}
	return writeOutput(g.out, []byte(out))
}

// setup resolves configuration (flags over env over file over defaults) and builds the logger.
func setup(g globalFlags) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configPath, g.envFile)
	if err != nil {
		return config.Config{}, nil, codeError(exitInput, "loading config: %s", err)
	}
	if g.prescriptionLog != "" {
		cfg.PrescriptionLog = g.prescriptionLog
	}
	if g.remarkLog != "" {
		cfg.RemarkLog = g.remarkLog
	}
	if g.format != "" {
		cfg.Format = g.format
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, codeError(exitInput, "invalid flags: %s", err)
	}

	logger, err := newLogger(g.verbose)
	if err != nil {
		return config.Config{}, nil, codeError(exitInput, "creating logger: %s", err)
	}
	logger.Debug("configuration resolved",
		zap.String("prescription_log", cfg.PrescriptionLog),
		zap.String("remark_log", cfg.RemarkLog),
		zap.String("format", cfg.Format),
	)
	return cfg, logger, nil
}

// newLogger returns a console logger on stderr: WARN and above, or DEBUG when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func newService(cfg config.Config, logger *zap.Logger) *prescription.Service {
	return prescription.NewService(
		ledger.NewFile(cfg.PrescriptionLog),
		ledger.NewFile(cfg.RemarkLog),
		logger,
	)
}

func newReport(cfg config.Config, cases []schema.CaseResult, sources, hashes []string) *schema.Report {
	return &schema.Report{
		Tool:    "prescribe",
		Version: version,
		Input: schema.Input{
			Sources:         sources,
			SourceHashes:    hashes,
			PrescriptionLog: cfg.PrescriptionLog,
			RemarkLog:       cfg.RemarkLog,
		},
		Summary: review.Summarize(cases),
		Cases:   cases,
	}
}

func writeReport(g globalFlags, cfg config.Config, report *schema.Report) error {
	renderer, err := render.NewRenderer(cfg.Format)
	if err != nil {
		return codeError(exitInput, "invalid format: %s", err)
	}
	data, err := renderer.Render(report)
	if err != nil {
		return codeError(exitInput, "rendering output: %s", err)
	}
	return writeOutput(g.out, data)
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return codeError(exitInput, "writing output file: %s", err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return codeError(exitInput, "writing output: %s", err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

// statusError maps the worst status among single submissions to an exit code.
func statusError(cases []schema.CaseResult) error {
	s := review.Summarize(cases)
	switch {
	case s.WriteErrors > 0:
		return codeError(exitWriteError, "%d submission(s) could not be written", s.WriteErrors)
	case s.InputErrors > 0:
		for _, c := range cases {
			if c.Status == schema.StatusInputError {
				return codeError(exitInput, "%s", c.Error)
			}
		}
	case s.Rejected > 0:
		return codeError(exitRejected, "%d of %d submission(s) rejected", s.Rejected, s.Total)
	}
	return nil
}
