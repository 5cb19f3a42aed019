package validation

import (
	"context"
	"regexp"

	"github.com/forgeworks/componentvault/domain"
)

// versionPattern is the strict x.y.z syntax required in descriptors, with
// optional semver pre-release and build segments. It must accept everything
// semver.StrictNewVersion accepts, since the index admits those versions at
// submission time.
var versionPattern = regexp.MustCompile(
	`^\d+\.\d+\.\d+(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?(\+[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`)

// MetadataStage checks the descriptor and the version's metadata entries:
// required keys present and non-empty, version syntax, dependency shape.
// It is a hard gate, but unlike structure it does not stop the report from
// recording its own findings.
type MetadataStage struct{}

// Name implements Stage.
func (s *MetadataStage) Name() string { return "metadata" }

// Hard implements Stage.
func (s *MetadataStage) Hard() bool { return true }

// Evaluate implements Stage.
func (s *MetadataStage) Evaluate(ctx context.Context, snap *Snapshot) ([]domain.Finding, error) {
	var findings []domain.Finding

	fail := func(msg, path string) {
		findings = append(findings, domain.Finding{
			Stage:    s.Name(),
			Severity: domain.SeverityError,
			Message:  msg,
			Path:     path,
		})
	}

	for _, key := range domain.RequiredMetadataKeys {
		if v, ok := snap.Metadata(key); !ok || v == "" {
			fail("required metadata key "+key+" is missing or empty", "")
		}
	}

	if !snap.Has(domain.DescriptorFileName) {
		fail("descriptor file not present", domain.DescriptorFileName)
		return findings, nil
	}

	data, err := snap.Read(ctx, domain.DescriptorFileName)
	if err != nil {
		return nil, err
	}

	descriptor, err := domain.ParseDescriptor(data)
	if err != nil {
		fail("descriptor is not valid YAML", domain.DescriptorFileName)
		return findings, nil
	}

	if descriptor.Name == "" {
		fail("descriptor name is empty", domain.DescriptorFileName)
	}
	if descriptor.Category == "" {
		fail("descriptor category is empty", domain.DescriptorFileName)
	}
	switch {
	case descriptor.Version == "":
		fail("descriptor version is empty", domain.DescriptorFileName)
	case !versionPattern.MatchString(descriptor.Version):
		fail("descriptor version must use x.y.z syntax", domain.DescriptorFileName)
	}
	for name, constraint := range descriptor.Dependencies {
		if name == "" || constraint == "" {
			fail("dependency entries must map a component name to a constraint", domain.DescriptorFileName)
			break
		}
	}

	return findings, nil
}
