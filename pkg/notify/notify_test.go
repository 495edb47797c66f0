package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/store/memory"
)

func newTestDispatcher() (*Dispatcher, *memory.Store) {
	recordStore := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewDispatcher(recordStore, logger), recordStore
}

func TestSend_OriginChat(t *testing.T) {
	d, recordStore := newTestDispatcher()

	ctx := models.NewExecutionContext(map[string]any{
		models.ContextKeyChatID: "chat_42",
		"producto":              "Servidor Cloud",
	})

	results, err := d.Send(context.Background(), "ws-1", models.MessageConfig{
		Message: "Pedido de {{producto}} registrado",
		Channel: ChannelChat,
	}, ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, AllSucceeded(results))
	assert.Equal(t, KindChat, results[0].Recipient.Kind)

	messages, err := recordStore.Find(context.Background(), "ws-1", ChatMessagesCollection, nil, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "chat_42", messages[0].String("chatId"))
	assert.Equal(t, "Pedido de Servidor Cloud registrado", messages[0].String("message"))
}

func TestSend_OriginChatFallsBackToAgent(t *testing.T) {
	d, _ := newTestDispatcher()

	ctx := models.NewExecutionContext(map[string]any{
		models.ContextKeyAgentID: "agent-7",
	})

	results, err := d.Send(context.Background(), "ws-1", models.MessageConfig{
		Message: "hola", Channel: ChannelChat,
	}, ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, KindAgent, results[0].Recipient.Kind)
}

func TestSend_NoOriginIsAnError(t *testing.T) {
	d, _ := newTestDispatcher()

	_, err := d.Send(context.Background(), "ws-1", models.MessageConfig{Message: "hola"},
		models.NewExecutionContext(nil))
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestSend_FixedTargetInApp(t *testing.T) {
	d, recordStore := newTestDispatcher()

	results, err := d.Send(context.Background(), "ws-1", models.MessageConfig{
		Message:     "Aviso",
		TargetType:  TargetFixed,
		TargetValue: "user-9",
		Channel:     ChannelInApp,
	}, models.NewExecutionContext(nil))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "stored", results[0].Status)

	notifications, err := recordStore.Find(context.Background(), "ws-1", NotificationsCollection, nil, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "user-9", notifications[0].String("recipient"))
}

func TestSend_RecordFieldPhoneOverWhatsapp(t *testing.T) {
	d, _ := newTestDispatcher()

	ctx := models.NewExecutionContext(map[string]any{
		"cliente": map[string]any{"telefono": "+34 600 123 456"},
	})

	results, err := d.Send(context.Background(), "ws-1", models.MessageConfig{
		Message:     "Su pedido está listo",
		TargetType:  TargetRecordField,
		TargetField: "cliente.telefono",
		Channel:     ChannelWhatsapp,
	}, ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, KindPhone, results[0].Recipient.Kind)
	assert.Equal(t, "pending", results[0].Status)
	assert.True(t, results[0].Success)
}

func TestSend_TableQuery(t *testing.T) {
	d, recordStore := newTestDispatcher()
	ctx := context.Background()

	_, err := recordStore.Insert(ctx, "ws-1", "agentes", store.Record{"id": "a1", "userId": "user-1", "rol": "ventas"})
	require.NoError(t, err)
	_, err = recordStore.Insert(ctx, "ws-1", "agentes", store.Record{"id": "a2", "userId": "user-2", "rol": "soporte"})
	require.NoError(t, err)

	results, err := d.Send(ctx, "ws-1", models.MessageConfig{
		Message:     "Nuevo pedido",
		TargetType:  TargetTableQuery,
		QueryTable:  "agentes",
		QueryField:  "userId",
		QueryFilter: "rol = ventas",
		Channel:     ChannelInApp,
	}, models.NewExecutionContext(nil))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "user-1", results[0].Recipient.Address)
}

func TestParseFilterExpression(t *testing.T) {
	field, value, ok := parseFilterExpression(`rol = "ventas"`)
	require.True(t, ok)
	assert.Equal(t, "rol", field)
	assert.Equal(t, "ventas", value)

	_, _, ok = parseFilterExpression("sin igual")
	assert.False(t, ok)
}

func TestInferKind(t *testing.T) {
	assert.Equal(t, KindChat, inferKind("chat_42"))
	assert.Equal(t, KindChat, inferKind("chat-42"))
	assert.Equal(t, KindPhone, inferKind("+34600123456"))
	assert.Equal(t, KindUser, inferKind("user-9"))
}

func TestAllSucceeded_EmptyIsFalse(t *testing.T) {
	assert.False(t, AllSucceeded(nil))
	assert.False(t, AllSucceeded([]DeliveryResult{{Success: true}, {Success: false}}))
	assert.True(t, AllSucceeded([]DeliveryResult{{Success: true}}))
}
