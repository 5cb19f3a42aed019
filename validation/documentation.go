package validation

import (
	"context"
	"strings"

	"github.com/forgeworks/componentvault/domain"
)

// Documentation thresholds.
const (
	minReadmeBytes     = 100
	minCommentCoverage = 0.6
)

// recommendedSections are README headings a complete component is expected
// to carry. Missing ones are informational only.
var recommendedSections = []string{"usage", "install"}

// DocumentationStage checks a version's descriptive material: README length
// and shape, plus a rough comment-coverage heuristic over source files.
// Everything here is soft; nothing in this stage can reject a version on
// its own.
type DocumentationStage struct{}

// Name implements Stage.
func (s *DocumentationStage) Name() string { return "documentation" }

// Hard implements Stage.
func (s *DocumentationStage) Hard() bool { return false }

// Evaluate implements Stage.
func (s *DocumentationStage) Evaluate(ctx context.Context, snap *Snapshot) ([]domain.Finding, error) {
	var findings []domain.Finding

	add := func(severity domain.Severity, msg, path string) {
		findings = append(findings, domain.Finding{
			Stage:    s.Name(),
			Severity: severity,
			Message:  msg,
			Path:     path,
		})
	}

	if snap.Has("README.md") {
		readme, err := snap.Read(ctx, "README.md")
		if err != nil {
			return nil, err
		}
		text := string(readme)
		if len(readme) < minReadmeBytes {
			add(domain.SeverityWarning, "README.md is shorter than 100 bytes", "README.md")
		}
		if !strings.HasPrefix(strings.TrimSpace(text), "#") {
			add(domain.SeverityWarning, "README.md has no title heading", "README.md")
		}
		lower := strings.ToLower(text)
		for _, section := range recommendedSections {
			if !strings.Contains(lower, section) {
				add(domain.SeverityInfo, "README.md has no "+section+" section", "README.md")
			}
		}
	} else {
		add(domain.SeverityWarning, "README.md not present", "")
	}

	documented, total := 0, 0
	for _, path := range snap.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !IsSourceFile(path) || IsTestFile(path) {
			continue
		}
		content, err := snap.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		total++
		if commentLineRatio(string(content)) > 0 {
			documented++
		}
	}
	if total > 0 && float64(documented)/float64(total) < minCommentCoverage {
		add(domain.SeverityWarning, "fewer than 60% of source files carry comments", "")
	}

	return findings, nil
}

// commentLineRatio returns the share of non-blank lines that are comments,
// recognizing the comment markers of the supported source languages.
func commentLineRatio(content string) float64 {
	comments, nonBlank := 0, 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonBlank++
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") ||
			strings.HasPrefix(trimmed, "\"\"\"") {
			comments++
		}
	}
	if nonBlank == 0 {
		return 0
	}
	return float64(comments) / float64(nonBlank)
}
