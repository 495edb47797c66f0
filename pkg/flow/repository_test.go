package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/persistence/file"
)

func validFlow(id, workspaceID string, triggerType models.TriggerType, table string) *models.Flow {
	return &models.Flow{
		ID:           id,
		WorkspaceID:  workspaceID,
		Name:         "Control de stock",
		Active:       true,
		TriggerType:  triggerType,
		TriggerTable: table,
		Nodes: []*models.Node{
			{ID: "t", Type: models.NodeTypeTrigger},
			{ID: "a", Type: models.NodeTypeAction, Data: map[string]any{"actionType": "allow"}},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "t", Target: "a"}},
	}
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	return NewRepository(file.NewPersistence(t.TempDir()))
}

func TestCreateAndFetch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, validFlow("", "ws-1", models.TriggerCreate, "pedidos"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := repo.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestCreateRejectsInvalidDefinition(t *testing.T) {
	repo := newTestRepository(t)

	noTrigger := validFlow("", "ws-1", models.TriggerCreate, "pedidos")
	noTrigger.Nodes = noTrigger.Nodes[1:]

	_, err := repo.Create(context.Background(), noTrigger)
	require.ErrorIs(t, err, ErrInvalidDefinition)

	shortName := validFlow("", "ws-1", models.TriggerCreate, "pedidos")
	shortName.Name = "ab"

	_, err = repo.Create(context.Background(), shortName)
	require.ErrorIs(t, err, ErrInvalidDefinition)

	badTrigger := validFlow("", "ws-1", "onSave", "pedidos")

	_, err = repo.Create(context.Background(), badTrigger)
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestValidateDefinitionAcceptsNodesWithoutData(t *testing.T) {
	// Trigger nodes commonly carry no configuration at all.
	definition := validFlow("", "ws-1", models.TriggerCreate, "pedidos")
	definition.Nodes = []*models.Node{
		{ID: "t", Type: models.NodeTypeTrigger},
		{ID: "a", Type: models.NodeTypeAction},
	}

	require.NoError(t, ValidateDefinition(definition))
}

func TestFlowsForFiltersByTriggerAndTable(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, validFlow("", "ws-1", models.TriggerCreate, "pedidos"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, validFlow("", "ws-1", models.TriggerCreate, "clientes"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, validFlow("", "ws-1", models.TriggerUpdate, "pedidos"))
	require.NoError(t, err)

	inactive := validFlow("", "ws-1", models.TriggerCreate, "pedidos")
	inactive.Active = false
	_, err = repo.Create(ctx, inactive)
	require.NoError(t, err)

	matched, err := repo.FlowsFor(ctx, "ws-1", models.TriggerCreate, "pedidos")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "pedidos", matched[0].TriggerTable)
}

func TestFlowsForNoMatchesIsEmptyNotError(t *testing.T) {
	repo := newTestRepository(t)

	matched, err := repo.FlowsFor(context.Background(), "ws-1", models.TriggerDelete, "pedidos")
	require.NoError(t, err)
	assert.NotNil(t, matched)
	assert.Empty(t, matched)
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, validFlow("", "ws-1", models.TriggerCreate, "pedidos"))
	require.NoError(t, err)

	replacement := validFlow("", "ws-1", models.TriggerCreate, "pedidos")
	replacement.Name = "Control de stock v2"

	updated, err := repo.Update(ctx, created.ID, replacement)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Control de stock v2", updated.Name)
}
