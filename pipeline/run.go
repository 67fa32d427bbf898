/*
Package pipeline orchestrates one reconciliation run end to end.

PURPOSE:
  Wires the boundary readers, the aggregator, the comparator, and the
  audit trail into the single-pass run the operators trigger: ingest both
  extract populations, aggregate per employee, fold populations together,
  compare against the HR-reported figures, and leave a diagnostic trail.

ORDERING:
  The comparison runs only after BOTH sides' aggregates are fully built.
  This is a hard join barrier, not a streaming join - a row cannot be
  compared until population folding has finished, because a late worker
  extract row can change a staff employee's total.

ERROR POSTURE (per the run taxonomy):
  - Recoverable skips from the readers become audit diagnostics and the
    run continues.
  - Configuration errors (bad policy table, missing constants) and
    missing sources abort before any comparison rows are produced.
  - Audit delivery failures are logged and never fail the run; the audit
    trail is an observer, not a participant.

SEE ALSO:
  - source: Boundary readers
  - recon: Aggregation and comparison
  - audit: Diagnostic trail
*/
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/payroll-engine/audit"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/recon"
	"github.com/warp/payroll-engine/source"
)

// =============================================================================
// PIPELINE STEPS
// =============================================================================

// Step numbers for the audit trail. Keep in sync with audit.StepMax.
const (
	StepIngestStaff  = 1
	StepIngestWorker = 2
	StepAggregate    = 3
	StepFold         = 4
	StepIngestHR     = 5
	StepCompare      = 6
	StepReimburse    = 7
	StepSummary      = 8
)

// =============================================================================
// RUNNER
// =============================================================================

// Input carries one run's source datasets. Staff sheets and the
// HR-reported sheet are required; worker sheets and the reimbursement
// sheet are optional populations.
type Input struct {
	StaffSheets   []source.Sheet
	WorkerSheets  []source.Sheet
	ReportedSheet *source.Sheet
	ReimSheet     *source.Sheet
}

// Result is the full output of one run.
type Result struct {
	BatchID    string
	Rows       []recon.ComparisonRow
	ReimRows   []recon.ComparisonRow
	Aggregates map[recon.EmployeeID]recon.AggregateRecord
}

// Runner executes reconciliation runs under one configuration.
type Runner struct {
	cfg      *config.Config
	registry *recon.Registry
	auditor  *audit.Service
	log      *zap.Logger
}

// NewRunner wires a runner. The audit service may be nil when no trail
// is wanted (tests, ad-hoc runs).
func NewRunner(cfg *config.Config, registry *recon.Registry, auditor *audit.Service, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, registry: registry, auditor: auditor, log: log}
}

// Run executes one reconciliation pass. Fatal errors (missing sources,
// misconfiguration) return before any rows are produced.
func (r *Runner) Run(ctx context.Context, input Input) (*Result, error) {
	if len(input.StaffSheets) == 0 {
		return nil, fmt.Errorf("staff extract: %w", recon.ErrSourceMissing)
	}
	if input.ReportedSheet == nil {
		return nil, fmt.Errorf("hr-reported sheet: %w", recon.ErrSourceMissing)
	}

	comparator, err := recon.NewComparator(r.cfg.Tolerance)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	batchID := ""

	// Step 1-2: ingest extract populations.
	staff := source.ExtractSheets(recon.SourceStaff, input.StaffSheets)
	batchID = r.emitDiagnostics(ctx, batchID, StepIngestStaff, audit.ScopeStaff, staff.Diagnostics)
	r.log.Info("staff extract ingested",
		zap.Int("employees", len(staff.Observations.ByMonth)),
		zap.Int("skips", len(staff.Diagnostics)))

	worker := source.ExtractSheets(recon.SourceWorker, input.WorkerSheets)
	batchID = r.emitDiagnostics(ctx, batchID, StepIngestWorker, audit.ScopeWorker, worker.Diagnostics)

	// Step 3: per-employee aggregation (pure per identity).
	aggregator := recon.NewAggregator(r.registry)
	staffAggs := aggregator.AggregateSet(staff.Observations, staff.Departments)
	workerAggs := aggregator.AggregateSet(worker.Observations, worker.Departments)

	// Step 4: fold populations; Staff metadata wins on collision.
	aggregates := make(map[recon.EmployeeID]recon.AggregateRecord, len(staffAggs)+len(workerAggs))
	recon.Fold(aggregates, workerAggs)
	recon.Fold(aggregates, staffAggs)
	result.Aggregates = aggregates

	// Step 5: HR-reported side.
	reported, hrDiags := source.ExtractReported(*input.ReportedSheet)
	batchID = r.emitDiagnostics(ctx, batchID, StepIngestHR, audit.ScopeGlobal, hrDiags)

	// Step 6: join barrier reached; compare.
	result.Rows = comparator.Compare(aggregates, reported)
	batchID = r.emitMismatches(ctx, batchID, StepCompare, result.Rows)

	// Step 7: reimbursement variant, when an HR reimbursement sheet exists.
	if input.ReimSheet != nil {
		reimRows, err := r.reimburse(ctx, comparator, aggregates, staff, worker, *input.ReimSheet, &batchID)
		if err != nil {
			return nil, err
		}
		result.ReimRows = reimRows
	}

	// Step 8: run summary.
	batchID = r.emitSummary(ctx, batchID, result)
	result.BatchID = batchID

	return result, nil
}

// reimburse runs the percentage variant against the HR reimbursement
// sheet.
func (r *Runner) reimburse(ctx context.Context, comparator *recon.Comparator, aggregates map[recon.EmployeeID]recon.AggregateRecord, staff, worker source.ExtractResult, sheet source.Sheet, batchID *string) ([]recon.ComparisonRow, error) {
	calc, err := recon.NewReimbursementCalculator(r.registry, r.cfg.RegisterRate, r.cfg.ReferenceDate)
	if err != nil {
		return nil, err
	}

	reportedReim, diags := source.ExtractReported(sheet)
	*batchID = r.emitDiagnostics(ctx, *batchID, StepReimburse, audit.ScopeGlobal, diags)

	computed := make(map[recon.EmployeeID]recon.Reimbursement, len(aggregates))
	for id, rec := range aggregates {
		rawStart := staff.Observations.StartDate[id]
		if rawStart == "" {
			rawStart = worker.Observations.StartDate[id]
		}
		pct := calc.EffectivePercentage(id, rawStart)
		computed[id] = calc.Compute(id, calc.GrossFor(rec), pct)
	}

	rows := comparator.CompareReimbursed(computed, aggregates, reportedReim)
	*batchID = r.emitMismatches(ctx, *batchID, StepReimburse, rows)
	return rows, nil
}

// =============================================================================
// AUDIT EMISSION - Best effort, never fails the run
// =============================================================================

func (r *Runner) emitDiagnostics(ctx context.Context, batchID string, step int, scope audit.Scope, diags []source.Diagnostic) string {
	if r.auditor == nil || len(diags) == 0 {
		return batchID
	}
	items := make([]audit.IngestItem, len(diags))
	for i, d := range diags {
		items[i] = audit.IngestItem{
			Level:  audit.Level(d.Severity),
			Tag:    d.Tag,
			Text:   d.Text,
			Scope:  scope,
			Source: fmt.Sprintf("step-%d", step),
		}
	}
	return r.ingest(ctx, batchID, step, items)
}

func (r *Runner) emitMismatches(ctx context.Context, batchID string, step int, rows []recon.ComparisonRow) string {
	if r.auditor == nil {
		return batchID
	}
	var items []audit.IngestItem
	for _, row := range rows {
		if row.Status != recon.StatusMismatch {
			continue
		}
		items = append(items, audit.IngestItem{
			Level: audit.LevelWarning,
			Tag:   "mismatch",
			Text: fmt.Sprintf("employee %d (%s): computed %s, reported %s, difference %s",
				row.ID, row.Name, row.Computed.StringFixed(2), row.Reported.StringFixed(2), row.Difference.StringFixed(2)),
			Scope: audit.ScopeGlobal,
			Meta: map[string]string{
				"employee":   fmt.Sprintf("%d", row.ID),
				"difference": row.Difference.String(),
			},
		})
	}
	if len(items) == 0 {
		return batchID
	}
	return r.ingest(ctx, batchID, step, items)
}

func (r *Runner) emitSummary(ctx context.Context, batchID string, result *Result) string {
	if r.auditor == nil {
		return batchID
	}
	matches, mismatches := 0, 0
	for _, row := range result.Rows {
		if row.Status == recon.StatusMatch {
			matches++
		} else {
			mismatches++
		}
	}
	items := []audit.IngestItem{{
		Level: audit.LevelInfo,
		Tag:   "run-summary",
		Text:  fmt.Sprintf("reconciliation finished: %d rows, %d match, %d mismatch", len(result.Rows), matches, mismatches),
		Scope: audit.ScopeGlobal,
		Meta: map[string]string{
			"rows":       fmt.Sprintf("%d", len(result.Rows)),
			"matches":    fmt.Sprintf("%d", matches),
			"mismatches": fmt.Sprintf("%d", mismatches),
		},
	}}
	return r.ingest(ctx, batchID, StepSummary, items)
}

// ingest delivers one audit call, reusing the run's batch once assigned.
func (r *Runner) ingest(ctx context.Context, batchID string, step int, items []audit.IngestItem) string {
	res, err := r.auditor.Ingest(ctx, audit.IngestRequest{
		BatchID: batchID,
		Step:    &step,
		Items:   items,
	})
	if err != nil {
		r.log.Warn("audit delivery failed", zap.Int("step", step), zap.Error(err))
		return batchID
	}
	return res.BatchID
}
