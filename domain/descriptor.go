package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DescriptorFileName is the per-component descriptor committed at the root
// of each component directory.
const DescriptorFileName = "component.yaml"

// Descriptor is the committed form of a component version's identity and
// dependency declarations. It lives next to the component's files, so every
// pinned commit carries a self-describing snapshot.
type Descriptor struct {
	// Name is the component name.
	Name string `yaml:"name"`

	// Version is the semantic version of this snapshot.
	Version string `yaml:"version"`

	// Description is a human-readable summary.
	Description string `yaml:"description,omitempty"`

	// Category places the component in the tree.
	Category string `yaml:"category"`

	// Owner is the identity that submitted the version.
	Owner string `yaml:"owner,omitempty"`

	// Tags label the component for search.
	Tags []string `yaml:"tags,omitempty"`

	// Dependencies maps required component names to constraint expressions.
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
}

// MarshalDescriptor encodes a descriptor to its committed YAML form.
func MarshalDescriptor(d *Descriptor) ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	return data, nil
}

// ParseDescriptor decodes the committed YAML form of a descriptor.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	return &d, nil
}
