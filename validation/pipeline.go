// Package validation runs the ordered quality gates a component version must
// pass before publication. Stages evaluate a read-only snapshot pinned to a
// commit id, so a run is deterministic and idempotent: the same snapshot and
// metadata always produce the same verdict and finding set.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forgeworks/componentvault/domain"
)

// DefaultStageTimeout bounds a single stage's execution. A stage that
// overruns it is recorded as a soft failure; the pipeline keeps going.
const DefaultStageTimeout = 30 * time.Second

// Stage is one validation gate. Implementations must be stateless and
// side-effect free: Evaluate may be called any number of times for any
// snapshot.
type Stage interface {
	// Name identifies the stage in reports.
	Name() string

	// Hard reports whether a failing outcome aborts the remaining stages.
	Hard() bool

	// Evaluate inspects the snapshot and returns its findings. A non-nil
	// error means the stage could not run at all (infrastructure failure),
	// not that the content failed the gate.
	Evaluate(ctx context.Context, snap *Snapshot) ([]domain.Finding, error)
}

// Options configures a Pipeline.
type Options struct {
	// Stages override the default stage sequence. Order is execution order.
	Stages []Stage

	// StageTimeout bounds each stage. Zero means DefaultStageTimeout.
	StageTimeout time.Duration

	// Logger receives run-level log output. Nil means slog.Default().
	Logger *slog.Logger
}

// Pipeline executes stages in a fixed order against a snapshot.
type Pipeline struct {
	stages       []Stage
	stageTimeout time.Duration
	logger       *slog.Logger
}

// New creates a Pipeline. With no explicit stages it runs the standard
// sequence: structure, metadata, quality, documentation.
func New(opts Options) *Pipeline {
	stages := opts.Stages
	if stages == nil {
		stages = []Stage{
			&StructureStage{},
			&MetadataStage{},
			&QualityStage{},
			&DocumentationStage{},
		}
	}
	timeout := opts.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{stages: stages, stageTimeout: timeout, logger: logger}
}

// Run evaluates every stage in order and returns the completed report.
//
// A failing hard stage stops the run; stages that never ran are absent from
// the report. A stage timeout is recorded as a failed stage, soft. If ctx is
// cancelled or a stage hits an infrastructure error, Run returns the error
// with no report and the caller is expected to revert the version to draft.
func (p *Pipeline) Run(ctx context.Context, versionID string, snap *Snapshot) (*domain.ValidationReport, error) {
	if snap == nil {
		return nil, WrapError(ErrInvalidInput, "nil snapshot")
	}

	report := &domain.ValidationReport{
		ID:        uuid.NewString(),
		VersionID: versionID,
		Verdict:   domain.VerdictValidated,
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, timedOut, err := p.runStage(ctx, stage, snap)
		if err != nil {
			return nil, err
		}
		report.Stages = append(report.Stages, result)

		// A timed-out stage is always a soft failure, even when the stage
		// itself is a hard gate: slowness is transient and must not push
		// the version into a terminal rejection.
		if !timedOut && failedHard(stage, result) {
			report.Verdict = domain.VerdictRejected
			p.logger.Info("validation aborted by hard gate",
				"version", versionID, "stage", stage.Name())
			break
		}
	}

	if report.Verdict != domain.VerdictRejected && hasHardFinding(report) {
		report.Verdict = domain.VerdictRejected
	}

	report.CreatedAt = time.Now().UTC()
	p.logger.Info("validation run complete",
		"version", versionID, "verdict", report.Verdict, "stages", len(report.Stages))
	return report, nil
}

// runStage executes one stage under the per-stage timeout. The second return
// value reports that the stage overran its budget.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, snap *Snapshot) (domain.StageResult, bool, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	findings, err := stage.Evaluate(stageCtx, snap)
	if err != nil {
		// A stage overrunning its own budget is a stage failure, not a run
		// failure. Cancellation of the parent context still surfaces.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.StageResult{
				Stage:   stage.Name(),
				Outcome: domain.OutcomeFail,
				Findings: []domain.Finding{{
					Stage:    stage.Name(),
					Severity: domain.SeverityError,
					Message:  "stage timed out",
				}},
			}, true, nil
		}
		if errors.Is(err, context.Canceled) {
			return domain.StageResult{}, false, context.Canceled
		}
		return domain.StageResult{}, false, WrapErrorf(err, "stage %q failed to run", stage.Name())
	}

	return domain.StageResult{
		Stage:    stage.Name(),
		Outcome:  stageOutcome(findings),
		Findings: findings,
	}, false, nil
}

// stageOutcome reduces findings to the stage summary.
func stageOutcome(findings []domain.Finding) domain.StageOutcome {
	outcome := domain.OutcomePass
	for _, f := range findings {
		switch f.Severity {
		case domain.SeverityError:
			return domain.OutcomeFail
		case domain.SeverityWarning:
			outcome = domain.OutcomeWarn
		}
	}
	return outcome
}

// failedHard reports whether a hard-gated stage failed.
func failedHard(stage Stage, result domain.StageResult) bool {
	return stage.Hard() && result.Outcome == domain.OutcomeFail
}

// hasHardFinding reports whether any soft-stage finding is marked hard,
// which forces rejection even when every hard gate passed.
func hasHardFinding(report *domain.ValidationReport) bool {
	for _, f := range report.Findings() {
		if f.Hard {
			return true
		}
	}
	return false
}
