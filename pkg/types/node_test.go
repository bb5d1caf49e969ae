package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kortexhq/kortex/pkg/types"
)

func TestReverseEntitiesOrdersByCreation(t *testing.T) {
	now := time.Now()
	a := &types.Entity{UUID: "a", CreatedAt: now.Add(2 * time.Hour)}
	b := &types.Entity{UUID: "b", CreatedAt: now}
	c := &types.Entity{UUID: "c", CreatedAt: now.Add(time.Hour)}

	ordered := types.ReverseEntities([]*types.Entity{a, b, c})
	assert.Equal(t, []string{"b", "c", "a"}, []string{ordered[0].UUID, ordered[1].UUID, ordered[2].UUID})
}

func TestIndexEntitiesByUUID(t *testing.T) {
	a := &types.Entity{UUID: "a", Name: "Ada"}
	b := &types.Entity{UUID: "b", Name: "Bea"}

	idx := types.IndexEntitiesByUUID([]*types.Entity{a, b})
	assert.Same(t, a, idx["a"])
	assert.Same(t, b, idx["b"])
	assert.Nil(t, idx["missing"])
}
