package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowUnmarshal_LegacyAliases(t *testing.T) {
	payload := `{
		"id": "flow-1",
		"workspaceId": "ws-1",
		"name": "Control de stock",
		"active": true,
		"trigger": "create",
		"tableId": "pedidos",
		"nodes": [{"id": "t", "type": "trigger"}]
	}`

	var flow Flow

	err := json.Unmarshal([]byte(payload), &flow)
	require.NoError(t, err)

	assert.Equal(t, TriggerCreate, flow.TriggerType)
	assert.Equal(t, "pedidos", flow.TriggerTable)
}

func TestFlowUnmarshal_CanonicalNamesWin(t *testing.T) {
	payload := `{
		"id": "flow-1",
		"workspaceId": "ws-1",
		"name": "Control de stock",
		"triggerType": "update",
		"trigger": "create",
		"triggerTable": "productos",
		"tableId": "pedidos",
		"nodes": []
	}`

	var flow Flow

	err := json.Unmarshal([]byte(payload), &flow)
	require.NoError(t, err)

	assert.Equal(t, TriggerUpdate, flow.TriggerType)
	assert.Equal(t, "productos", flow.TriggerTable)
}

func TestFlowUnmarshal_TargetTableFallback(t *testing.T) {
	payload := `{"name": "x", "targetTable": "clientes", "triggerType": "delete"}`

	var flow Flow

	err := json.Unmarshal([]byte(payload), &flow)
	require.NoError(t, err)

	assert.Equal(t, "clientes", flow.TriggerTable)
}

func TestTriggerNode(t *testing.T) {
	flow := Flow{Nodes: []*Node{
		{ID: "a", Type: NodeTypeAction},
		{ID: "t", Type: NodeTypeTrigger},
	}}

	trigger := flow.TriggerNode()
	require.NotNil(t, trigger)
	assert.Equal(t, "t", trigger.ID)

	empty := Flow{}
	assert.Nil(t, empty.TriggerNode())
}

func TestOutgoingEdges_DefinitionOrder(t *testing.T) {
	flow := Flow{Edges: []*Edge{
		{ID: "e1", Source: "c", Target: "x"},
		{ID: "e2", Source: "t", Target: "c"},
		{ID: "e3", Source: "c", Target: "y"},
	}}

	edges := flow.OutgoingEdges("c")
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e3", edges[1].ID)
}

func TestEdgeBranchMatching(t *testing.T) {
	assert.True(t, (&Edge{Label: "Sí"}).MatchesYes())
	assert.True(t, (&Edge{Label: "si"}).MatchesYes())
	assert.True(t, (&Edge{Label: "YES"}).MatchesYes())
	assert.True(t, (&Edge{SourceHandle: "true"}).MatchesYes())
	assert.False(t, (&Edge{Label: "No"}).MatchesYes())

	assert.True(t, (&Edge{Label: "No"}).MatchesNo())
	assert.True(t, (&Edge{SourceHandle: "false"}).MatchesNo())
	assert.False(t, (&Edge{Label: "Sí"}).MatchesNo())
}

func TestExecutionContextLookup(t *testing.T) {
	ctx := NewExecutionContext(map[string]any{
		"producto": "Servidor Cloud",
		"productData": map[string]any{
			"precio": 100.0,
			"extra":  map[string]any{"nivel": "premium"},
		},
	})

	value, ok := ctx.Lookup("producto")
	require.True(t, ok)
	assert.Equal(t, "Servidor Cloud", value)

	value, ok = ctx.Lookup("productData.precio")
	require.True(t, ok)
	assert.InEpsilon(t, 100.0, value, 1e-9)

	value, ok = ctx.Lookup("productData.extra.nivel")
	require.True(t, ok)
	assert.Equal(t, "premium", value)

	_, ok = ctx.Lookup("productData.noExiste")
	assert.False(t, ok)

	_, ok = ctx.Lookup("producto.nested")
	assert.False(t, ok)
}

func TestQueryConfigDefaults(t *testing.T) {
	n := &Node{Type: NodeTypeQuery, Data: map[string]any{
		"targetTable": "productos",
		"filterField": "producto",
	}}

	cfg := n.QueryConfig()
	assert.Equal(t, FilterValueTrigger, cfg.FilterValueType)
	assert.Equal(t, "producto", cfg.FilterValueField)
	assert.Equal(t, "queryResult", cfg.OutputVar)
}

func TestActionConfig_BareNotificationNode(t *testing.T) {
	n := &Node{Type: NodeTypeNotification, Data: map[string]any{
		"message": "Pedido registrado",
	}}

	cfg := n.ActionConfig()
	assert.Equal(t, ActionNotification, cfg.ActionType)
	assert.Equal(t, "Pedido registrado", cfg.Message.Message)
}
