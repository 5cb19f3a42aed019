package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_RoundTrip(t *testing.T) {
	want := &Descriptor{
		Name:        "matrix-utils",
		Version:     "1.2.3",
		Description: "matrix helpers",
		Category:    "utils",
		Owner:       "alice",
		Tags:        []string{"math", "linear-algebra"},
		Dependencies: map[string]string{
			"vector-utils": ">=1.0.0 <2.0.0",
		},
	}

	data, err := MarshalDescriptor(want)
	require.NoError(t, err)

	got, err := ParseDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseDescriptor_InvalidYAML(t *testing.T) {
	_, err := ParseDescriptor([]byte("name: [unclosed"))
	require.Error(t, err)
}
