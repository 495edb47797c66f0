package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/persistence"
)

func sampleFlow(id, workspaceID string) *models.Flow {
	return &models.Flow{
		ID:           id,
		WorkspaceID:  workspaceID,
		Name:         "Registrar pedido",
		Active:       true,
		TriggerType:  models.TriggerCreate,
		TriggerTable: "pedidos",
		Nodes:        []*models.Node{{ID: "t", Type: models.NodeTypeTrigger}},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	err := p.SaveFlow(ctx, sampleFlow("flow-1", "ws-1"))
	require.NoError(t, err)

	loaded, err := p.FlowByID(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "Registrar pedido", loaded.Name)
	assert.Equal(t, models.TriggerCreate, loaded.TriggerType)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.NodeTypeTrigger, loaded.Nodes[0].Type)
}

func TestFlowByIDNotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.FlowByID(context.Background(), "missing")
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowsFiltersByWorkspace(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.SaveFlow(ctx, sampleFlow("flow-1", "ws-1")))
	require.NoError(t, p.SaveFlow(ctx, sampleFlow("flow-2", "ws-2")))

	flows, err := p.Flows(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "flow-1", flows[0].ID)

	all, err := p.Flows(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteFlow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.SaveFlow(ctx, sampleFlow("flow-1", "ws-1")))
	require.NoError(t, p.DeleteFlow(ctx, "flow-1"))

	_, err := p.FlowByID(ctx, "flow-1")
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)

	err = p.DeleteFlow(ctx, "flow-1")
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)
}

func TestTolerantOfLegacyFieldNames(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := sampleFlow("flow-legacy", "ws-1")
	require.NoError(t, p.SaveFlow(ctx, flow))

	loaded, err := p.FlowByID(ctx, "flow-legacy")
	require.NoError(t, err)
	assert.Equal(t, "pedidos", loaded.TriggerTable)
}
