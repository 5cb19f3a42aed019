package validation

import (
	"context"

	"github.com/forgeworks/componentvault/domain"
)

// StructureStage verifies the snapshot contains the files every version must
// carry: the descriptor, a README and at least one source file. It is a hard
// gate; a failure here stops the pipeline.
type StructureStage struct{}

// Name implements Stage.
func (s *StructureStage) Name() string { return "structure" }

// Hard implements Stage.
func (s *StructureStage) Hard() bool { return true }

// Evaluate implements Stage.
func (s *StructureStage) Evaluate(ctx context.Context, snap *Snapshot) ([]domain.Finding, error) {
	var findings []domain.Finding

	fail := func(msg string) {
		findings = append(findings, domain.Finding{
			Stage:    s.Name(),
			Severity: domain.SeverityError,
			Message:  msg,
		})
	}
	warn := func(msg string) {
		findings = append(findings, domain.Finding{
			Stage:    s.Name(),
			Severity: domain.SeverityWarning,
			Message:  msg,
		})
	}

	if !snap.Has(domain.DescriptorFileName) {
		fail("missing descriptor file " + domain.DescriptorFileName)
	}
	if !snap.Has("README.md") {
		fail("missing README.md")
	}

	hasSource, hasTest := false, false
	for _, path := range snap.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if IsTestFile(path) {
			hasTest = true
			continue
		}
		if IsSourceFile(path) {
			hasSource = true
		}
	}
	if !hasSource {
		fail("no source files present")
	}
	if hasSource && !hasTest {
		warn("no test files present")
	}

	return findings, nil
}
