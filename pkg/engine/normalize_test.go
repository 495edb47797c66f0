package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recordflow/recordflow/pkg/models"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "si", normalizeText("Sí"))
	assert.Equal(t, "cafe", normalizeText("  Café "))
	assert.Equal(t, "servidor cloud", normalizeText("Servidor Cloud"))
	assert.Equal(t, "nino", normalizeText("NIÑO"))
}

func TestTextMatches_Exact(t *testing.T) {
	assert.True(t, textMatches("Servidor Cloud", "servidor cloud", false))
	assert.True(t, textMatches("Café", "cafe", false))
	assert.False(t, textMatches("Servidor Cloud", "servidor", false))
	assert.False(t, textMatches("", "servidor", false))
	assert.False(t, textMatches("Servidor", "", false))
}

func TestTextMatches_Partial(t *testing.T) {
	// Trailing plural tolerance.
	assert.True(t, textMatches("Servidores Cloud", "servidores clouds", true))

	// Substring containment in either direction.
	assert.True(t, textMatches("Servidor Cloud Premium", "servidor cloud", true))
	assert.True(t, textMatches("cloud", "Servidor Cloud", true))

	assert.False(t, textMatches("Dominio", "servidor", true))
}

func TestResolveNextEdge(t *testing.T) {
	yes := &models.Edge{ID: "yes", Source: "c", Target: "a", Label: "Sí"}
	no := &models.Edge{ID: "no", Source: "c", Target: "b", Label: "No"}
	plain := &models.Edge{ID: "plain", Source: "c", Target: "d"}

	assert.Nil(t, resolveNextEdge(nil, branchYes))

	// A single edge is followed regardless of the signal.
	assert.Equal(t, no, resolveNextEdge([]*models.Edge{no}, branchYes))

	assert.Equal(t, yes, resolveNextEdge([]*models.Edge{no, yes}, branchYes))
	assert.Equal(t, no, resolveNextEdge([]*models.Edge{yes, no}, branchNo))

	// Affirmative with no labeled match falls back to the first edge.
	assert.Equal(t, plain, resolveNextEdge([]*models.Edge{plain, plain}, branchYes))

	// Negative with no labeled match terminates the path.
	assert.Nil(t, resolveNextEdge([]*models.Edge{plain, plain}, branchNo))

	// No signal follows the first edge.
	assert.Equal(t, plain, resolveNextEdge([]*models.Edge{plain, no}, branchNone))
}
