package dispatch_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordflow/recordflow/pkg/channels/gochannel"
	"github.com/recordflow/recordflow/pkg/dispatch"
	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/eventbus"
	"github.com/recordflow/recordflow/pkg/events"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/notify"
	"github.com/recordflow/recordflow/pkg/persistence/file"
	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/store/memory"
)

func TestDispatcher_RecordCreatedRunsFlows(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	flows := flow.NewRepository(file.NewPersistence(t.TempDir()))

	_, err := flows.Create(ctx, &models.Flow{
		WorkspaceID:  "ws-1",
		Name:         "Registrar pedido",
		Active:       true,
		TriggerType:  models.TriggerCreate,
		TriggerTable: "pedidos",
		Nodes: []*models.Node{
			{ID: "t", Type: models.NodeTypeTrigger},
			{ID: "a", Type: models.NodeTypeAction, Data: map[string]any{
				"actionType":  "create",
				"targetTable": "logs",
				"fields":      map[string]any{"mensaje": "Pedido de {{producto}}"},
			}},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "t", Target: "a"}},
	})
	require.NoError(t, err)

	recordStore := memory.NewStore()
	flowEngine := engine.New(flows, recordStore, notify.NewDispatcher(recordStore, logger), logger)

	// The blocking test channel makes Publish wait for the ack, so the flow
	// run is complete once Publish returns.
	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	dispatcher := dispatch.NewDispatcher(flowEngine, bus, logger)
	require.NoError(t, dispatcher.Start(ctx))

	err = bus.Publish(ctx, "ws-1", events.RecordCreated{
		BaseEvent: events.NewBaseEvent(events.RecordCreatedEvent, "ws-1", "pedidos"),
		RecordID:  "rec-1",
		Record:    map[string]any{"id": "rec-1", "producto": "Servidor Cloud"},
	})
	require.NoError(t, err)

	logs, err := recordStore.Find(ctx, "ws-1", "logs", nil, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Pedido de Servidor Cloud", logs[0].String("mensaje"))
}

func TestDispatcher_UnmatchedTableIsNoOp(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	flows := flow.NewRepository(file.NewPersistence(t.TempDir()))
	recordStore := memory.NewStore()
	flowEngine := engine.New(flows, recordStore, notify.NewDispatcher(recordStore, logger), logger)

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	dispatcher := dispatch.NewDispatcher(flowEngine, bus, logger)
	require.NoError(t, dispatcher.Start(ctx))

	err = bus.Publish(ctx, "ws-1", events.RecordDeleted{
		BaseEvent: events.NewBaseEvent(events.RecordDeletedEvent, "ws-1", "clientes"),
		RecordID:  "rec-1",
	})
	require.NoError(t, err)

	logs, err := recordStore.Find(ctx, "ws-1", "logs", nil, store.FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
