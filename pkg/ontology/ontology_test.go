package ontology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/ontology"
)

func TestRegistryBuiltins(t *testing.T) {
	r := ontology.NewRegistry()
	l, ok := r.Lookup("Person")
	require.True(t, ok)
	assert.Equal(t, "Person", l.Name)
}

func TestRegistryCustomLabel(t *testing.T) {
	r := ontology.NewRegistry()
	err := r.Register(ontology.Label{Name: "Spaceship", Description: "a fictional vessel"})
	require.NoError(t, err)

	l, ok := r.Lookup("Spaceship")
	require.True(t, ok)
	assert.Equal(t, "a fictional vessel", l.Description)
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := ontology.NewRegistry()
	require.Error(t, r.Register(ontology.Label{}))
}

func TestByIndexRoundTrip(t *testing.T) {
	r := ontology.NewRegistry()
	names := r.Names()
	require.NotEmpty(t, names)

	name, ok := r.ByIndex(1)
	require.True(t, ok)
	assert.Equal(t, names[0], name)

	_, ok = r.ByIndex(0)
	assert.False(t, ok)

	_, ok = r.ByIndex(len(names) + 1)
	assert.False(t, ok)
}

func TestValidateRequiresKnownLabel(t *testing.T) {
	r := ontology.NewRegistry()
	err := r.Validate("Nonexistent", nil)
	require.Error(t, err)

	var verr *ontology.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Nonexistent", verr.Label)
}

func TestValidateAttributeKind(t *testing.T) {
	r := ontology.NewRegistry()
	require.NoError(t, r.Validate("Person", map[string]any{"role": "engineer"}))

	err := r.Validate("Person", map[string]any{"role": 42})
	require.Error(t, err)
}
