package validation

import (
	"context"
	"strings"

	"github.com/forgeworks/componentvault/domain"
)

// Quality thresholds. Values follow common review-tool defaults.
const (
	maxLineLength   = 100
	maxFuncLines    = 50
	maxFileBytes    = 256 * 1024
	hardMaxFileSize = 2 * 1024 * 1024
)

// QualityStage runs static heuristics over source files: overlong lines,
// oversized functions, oversized files. Findings are warnings except for
// files so large they are almost certainly committed artifacts, which are
// marked hard and force rejection.
type QualityStage struct{}

// Name implements Stage.
func (s *QualityStage) Name() string { return "quality" }

// Hard implements Stage.
func (s *QualityStage) Hard() bool { return false }

// Evaluate implements Stage.
func (s *QualityStage) Evaluate(ctx context.Context, snap *Snapshot) ([]domain.Finding, error) {
	var findings []domain.Finding

	for _, path := range snap.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !IsSourceFile(path) {
			continue
		}

		content, err := snap.Read(ctx, path)
		if err != nil {
			return nil, err
		}

		if len(content) > hardMaxFileSize {
			findings = append(findings, domain.Finding{
				Stage:    s.Name(),
				Severity: domain.SeverityError,
				Message:  "file exceeds the hard size limit",
				Path:     path,
				Hard:     true,
			})
			continue
		}
		if len(content) > maxFileBytes {
			findings = append(findings, domain.Finding{
				Stage:    s.Name(),
				Severity: domain.SeverityWarning,
				Message:  "file is unusually large",
				Path:     path,
			})
		}

		findings = append(findings, scanLines(s.Name(), path, content)...)
	}

	return findings, nil
}

// scanLines reports overlong lines and oversized function bodies. Function
// length uses a brace/indent heuristic good enough for the supported source
// extensions; it is intentionally approximate.
func scanLines(stage, path string, content []byte) []domain.Finding {
	var findings []domain.Finding
	lines := strings.Split(string(content), "\n")

	funcStart := -1
	depth := 0
	for i, line := range lines {
		lineNo := i + 1
		if len(line) > maxLineLength {
			findings = append(findings, domain.Finding{
				Stage:    stage,
				Severity: domain.SeverityWarning,
				Message:  "line exceeds 100 characters",
				Path:     path,
				Line:     lineNo,
			})
		}

		trimmed := strings.TrimSpace(line)
		if funcStart < 0 && looksLikeFuncStart(trimmed) {
			funcStart = lineNo
			depth = 0
		}
		if funcStart >= 0 {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			ended := depth <= 0 && strings.Contains(line, "}")
			if ended || i == len(lines)-1 {
				if lineNo-funcStart+1 > maxFuncLines {
					findings = append(findings, domain.Finding{
						Stage:    stage,
						Severity: domain.SeverityWarning,
						Message:  "function body exceeds 50 lines",
						Path:     path,
						Line:     funcStart,
					})
				}
				funcStart = -1
			}
		}
	}
	return findings
}

// looksLikeFuncStart matches function definitions across the supported
// source languages.
func looksLikeFuncStart(trimmed string) bool {
	for _, prefix := range []string{"func ", "def ", "function ", "fn "} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
