package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/modules/access/infrastructure/persistence"
	"github.com/iota-uz/role-import/modules/access/services"
	"github.com/iota-uz/role-import/pkg/metrics"
	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

type importOptions struct {
	input        string
	output       string
	manifestDir  string
	format       string
	sheet        string
	sheetIndex   int
	startRow     int
	apply        bool
	batchCommit  bool
	skipExisting bool

	startRowSet    bool
	batchCommitSet bool
	sheetIndexSet  bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import user/role pairs from an .xls/.xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input spreadsheet (required)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Report path (default: <input>_result.xlsx)")
	cmd.Flags().StringVar(&opts.manifestDir, "manifest-dir", "", "Directory for the run manifest (default: input dir)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Input format: xls, xlsx or auto (default: profile, then extension)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().IntVar(&opts.sheetIndex, "sheet-index", 0, "Zero-based sheet index")
	cmd.Flags().IntVar(&opts.startRow, "start-row", 1, "Zero-based first data row (default: IMPORT_START_ROW)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply changes to DB (default is dry-run)")
	cmd.Flags().BoolVar(&opts.batchCommit, "batch-commit", true, "Commit all inserts in one transaction (default: IMPORT_BATCH_COMMIT)")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "Skip pairs already present in the join table")
	_ = cmd.MarkFlagRequired("input")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		opts.startRowSet = cmd.Flags().Changed("start-row")
		opts.batchCommitSet = cmd.Flags().Changed("batch-commit")
		opts.sheetIndexSet = cmd.Flags().Changed("sheet-index")
		if opts.sheet != "" && opts.sheetIndexSet {
			return withCode(exitUsage, fmt.Errorf("--sheet and --sheet-index are mutually exclusive"))
		}
		if opts.sheetIndex < 0 || opts.startRow < 0 {
			return withCode(exitUsage, fmt.Errorf("--sheet-index and --start-row must be non-negative"))
		}
		return nil
	}

	return cmd
}

// resolved applies flag > profile > environment precedence.
func (o importOptions) resolved(a *app) importOptions {
	if stringsTrim(o.output) == "" {
		o.output = defaultReportPath(o.input)
	}
	if stringsTrim(o.manifestDir) == "" {
		o.manifestDir = filepath.Dir(o.input)
	}
	if stringsTrim(o.format) == "" {
		o.format = a.profile.Format
	}
	if stringsTrim(o.format) == "" {
		o.format = filepath.Ext(o.input)
	}
	if o.sheet == "" && !o.sheetIndexSet {
		o.sheet = a.profile.Sheet
		o.sheetIndex = a.profile.SheetIndex
	}
	if !o.startRowSet {
		o.startRow = a.cfg.Import.StartRow
	}
	if !o.batchCommitSet {
		o.batchCommit = a.cfg.Import.BatchCommit
	}
	return o
}

func (o importOptions) sheetSelector() spreadsheet.SheetSelector {
	if o.sheet != "" {
		return spreadsheet.SheetByName(o.sheet)
	}
	return spreadsheet.SheetAt(o.sheetIndex)
}

func runImport(ctx context.Context, a *app, opts importOptions) error {
	if stringsTrim(opts.input) == "" {
		return withCode(exitUsage, fmt.Errorf("--input is required"))
	}
	opts = opts.resolved(a)

	startedAt := time.Now().UTC()
	runID := uuid.New()
	logger := a.logger.WithField("run_id", runID.String())

	format := spreadsheet.ParseFormat(opts.format)
	sheet := opts.sheetSelector()
	records, err := spreadsheet.Read(opts.input, spreadsheet.Options{
		Format:   format,
		Sheet:    sheet,
		Columns:  a.profile.Columns,
		StartRow: opts.startRow,
	})
	if err != nil {
		return classified(exitValidation, err)
	}
	logger.WithField("rows", len(records)).Info("spreadsheet read")
	checkHeader(logger, opts.input, format, sheet, a.profile.Columns)

	dbCtx, db, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db, logger)

	loadCtx, cancel := a.withTimeout(dbCtx)
	refs, err := persistence.NewReferenceRepository(a.tables).Load(loadCtx)
	cancel()
	if err != nil {
		return classified(exitDB, err)
	}
	logger.WithFields(logrus.Fields{
		"users": len(refs.KnownUsernames),
		"roles": len(refs.RoleCodeByName),
	}).Debug("reference data loaded")

	m := metrics.NewImportMetrics()
	svc := services.NewImportService(persistence.NewAssignmentRepository(a.tables), m, logger)
	result, importErr := svc.Import(dbCtx, records, refs, services.ImportOptions{
		Fields:       services.Fields{Username: a.profile.UsernameColumn, Role: a.profile.RoleColumn},
		BatchCommit:  opts.batchCommit,
		DryRun:       !opts.apply,
		SkipExisting: opts.skipExisting,
		Progress: func(count int, row assignment.RowResult) {
			logger.WithFields(logrus.Fields{"count": count, "line": row.Line}).Info("accepted")
		},
	})

	var manifest *importManifestV1
	if opts.apply && result != nil && len(result.Pairs) > 0 {
		status := "applied"
		if importErr != nil {
			status = "partial"
		}
		manifest = newManifest(runID, startedAt, status, a, opts, format, sheet, result)
		path, err := writeManifest(opts.manifestDir, manifest)
		if err != nil {
			return err
		}
		logger.WithField("path", path).Info("manifest written")
	}
	if importErr != nil {
		return classified(exitDBWrite, importErr)
	}

	layout := services.ReportLayout{
		Sheet:         a.profile.Report.Sheet,
		Columns:       a.profile.ReportColumns(),
		Labels:        a.profile.ReportLabels(),
		SuccessColumn: a.profile.Report.SuccessColumn,
	}
	annotated := services.Annotate(records, result, layout.SuccessColumn)
	if err := services.WriteReport(ctx, opts.output, annotated, layout); err != nil {
		return classified(exitFileWrite, err)
	}
	logger.WithField("path", opts.output).Info("report written")

	pushCtx, cancelPush := a.withTimeout(ctx)
	if err := m.Push(pushCtx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		logger.WithError(err).Warn("metrics push failed")
	}
	cancelPush()

	status := "dry_run"
	if opts.apply {
		status = "applied"
	}
	return printImportSummary(runID, status, opts, result, manifest)
}

func checkHeader(logger *logrus.Entry, path string, format spreadsheet.Format, sheet spreadsheet.SheetSelector, columns []string) {
	header, err := spreadsheet.ReadHeader(path, format, sheet, len(columns))
	if err != nil {
		logger.WithError(err).Debug("header not readable")
		return
	}
	if header == nil {
		logger.Warn("header row is missing")
		return
	}
	for _, m := range services.CheckHeader(columns, header) {
		logger.WithField("column", m.Column).Warn("header mismatch: " + m.String())
	}
}

func newManifest(
	runID uuid.UUID,
	startedAt time.Time,
	status string,
	a *app,
	opts importOptions,
	format spreadsheet.Format,
	sheet spreadsheet.SheetSelector,
	result *assignment.Result,
) *importManifestV1 {
	m := &importManifestV1{
		Version:    1,
		RunID:      runID,
		Status:     status,
		Driver:     a.cfg.Database.Driver,
		Table:      a.tables.Join,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Inserted:   result.Pairs,
		Summary:    outcomeCounts(result),
	}
	m.Input.Path = opts.input
	m.Input.Format = string(format)
	m.Input.Sheet = sheet.String()
	return m
}

func outcomeCounts(result *assignment.Result) map[string]int {
	counts := map[string]int{
		string(assignment.OutcomeAccepted):           0,
		string(assignment.OutcomeSkippedDuplicate):   0,
		string(assignment.OutcomeSkippedUnknownUser): 0,
		string(assignment.OutcomeSkippedUnknownRole): 0,
	}
	for outcome, n := range result.Counts() {
		counts[string(outcome)] = n
	}
	return counts
}

type importSummary struct {
	Status          string         `json:"status"`
	RunID           string         `json:"run_id"`
	Apply           bool           `json:"apply"`
	BatchCommit     bool           `json:"batch_commit"`
	Input           string         `json:"input"`
	Output          string         `json:"output"`
	ManifestVersion *int           `json:"manifest_version,omitempty"`
	Rows            int            `json:"rows"`
	Accepted        int            `json:"accepted"`
	Outcomes        map[string]int `json:"outcomes"`
	UnresolvedUsers []string       `json:"unresolved_users"`
	UnresolvedRoles []string       `json:"unresolved_roles"`
}

func printImportSummary(runID uuid.UUID, status string, opts importOptions, result *assignment.Result, manifest *importManifestV1) error {
	s := importSummary{
		Status:          status,
		RunID:           runID.String(),
		Apply:           opts.apply,
		BatchCommit:     opts.batchCommit,
		Input:           opts.input,
		Output:          opts.output,
		Rows:            len(result.Rows),
		Accepted:        result.Accepted,
		Outcomes:        outcomeCounts(result),
		UnresolvedUsers: result.UnresolvedUsers,
		UnresolvedRoles: result.UnresolvedRoles,
	}
	if manifest != nil {
		s.ManifestVersion = &manifest.Version
	}
	return writeJSONLine(s)
}
