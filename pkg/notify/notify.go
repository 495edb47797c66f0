// Package notify resolves send_message recipients and dispatches templated
// messages per channel. Chat messages are injected as conversation records,
// in-app notifications are stored, and whatsapp deliveries are only marked
// pending; no live third-party delivery happens here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/template"
)

// Collections written by the dispatcher.
const (
	ChatsCollection         = "chats"
	ChatMessagesCollection  = "chat_messages"
	NotificationsCollection = "notifications"
)

// Recipient target types.
const (
	TargetOriginChat  = "origin_chat"
	TargetFixed       = "fixed"
	TargetRecordField = "record_field"
	TargetTableQuery  = "table_query"
)

// Delivery channels.
const (
	ChannelChat     = "chat"
	ChannelInApp    = "in_app"
	ChannelWhatsapp = "whatsapp"
)

// Recipient address kinds inferred from record field values.
const (
	KindChat  = "chat"
	KindPhone = "phone"
	KindUser  = "user"
	KindAgent = "agent"
)

var ErrNoRecipients = errors.New("no recipients resolved")

// Recipient is a resolved destination for one message.
type Recipient struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
}

// DeliveryResult reports one recipient's outcome. Overall success requires
// every recipient to succeed.
type DeliveryResult struct {
	Recipient Recipient `json:"recipient"`
	Channel   string    `json:"channel"`
	Success   bool      `json:"success"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

type Dispatcher struct {
	store  store.RecordStore
	logger *slog.Logger
}

func NewDispatcher(recordStore store.RecordStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  recordStore,
		logger: logger.With("module", "notify"),
	}
}

// Send resolves the recipients, renders the message against the execution
// context, and dispatches per channel. The returned error covers recipient
// resolution only; per-recipient delivery failures land in the results.
func (d *Dispatcher) Send(ctx context.Context, workspaceID string, cfg models.MessageConfig, executionCtx *models.ExecutionContext) ([]DeliveryResult, error) {
	recipients, err := d.resolveRecipients(ctx, workspaceID, cfg, executionCtx)
	if err != nil {
		return nil, err
	}

	message := template.Render(cfg.Message, executionCtx)

	channel := cfg.Channel
	if channel == "" {
		channel = ChannelInApp
	}

	results := make([]DeliveryResult, 0, len(recipients))
	for _, recipient := range recipients {
		results = append(results, d.deliver(ctx, workspaceID, channel, recipient, message))
	}

	return results, nil
}

// AllSucceeded reports whether every recipient was delivered to.
func AllSucceeded(results []DeliveryResult) bool {
	for _, result := range results {
		if !result.Success {
			return false
		}
	}

	return len(results) > 0
}

func (d *Dispatcher) resolveRecipients(ctx context.Context, workspaceID string, cfg models.MessageConfig, executionCtx *models.ExecutionContext) ([]Recipient, error) {
	switch cfg.TargetType {
	case TargetOriginChat, "":
		if chatID, ok := executionCtx.Get(models.ContextKeyChatID); ok && chatID != nil {
			return []Recipient{{Kind: KindChat, Address: template.FormatValue(chatID)}}, nil
		}

		if agentID, ok := executionCtx.Get(models.ContextKeyAgentID); ok && agentID != nil {
			return []Recipient{{Kind: KindAgent, Address: template.FormatValue(agentID)}}, nil
		}

		return nil, fmt.Errorf("%w: trigger carries no originating chat or agent", ErrNoRecipients)

	case TargetFixed:
		if cfg.TargetValue == "" {
			return nil, fmt.Errorf("%w: fixed target without targetValue", ErrNoRecipients)
		}

		return []Recipient{{Kind: inferKind(cfg.TargetValue), Address: cfg.TargetValue}}, nil

	case TargetRecordField:
		value, ok := executionCtx.Lookup(cfg.TargetField)
		if !ok || value == nil {
			return nil, fmt.Errorf("%w: record field %q is empty", ErrNoRecipients, cfg.TargetField)
		}

		address := template.FormatValue(value)

		return []Recipient{{Kind: inferKind(address), Address: address}}, nil

	case TargetTableQuery:
		return d.resolveTableQuery(ctx, workspaceID, cfg)

	default:
		return nil, fmt.Errorf("%w: unknown targetType %q", ErrNoRecipients, cfg.TargetType)
	}
}

func (d *Dispatcher) resolveTableQuery(ctx context.Context, workspaceID string, cfg models.MessageConfig) ([]Recipient, error) {
	selector := map[string]any{}

	if cfg.QueryFilter != "" {
		field, value, ok := parseFilterExpression(cfg.QueryFilter)
		if !ok {
			return nil, fmt.Errorf("%w: cannot parse filter %q", ErrNoRecipients, cfg.QueryFilter)
		}

		selector[field] = value
	}

	rows, err := d.store.Find(ctx, workspaceID, cfg.QueryTable, selector, store.FindOptions{Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("table_query lookup failed: %w", err)
	}

	recipients := make([]Recipient, 0)

	for _, row := range rows {
		address := row.String(cfg.QueryField)
		if address == "" {
			continue
		}

		recipients = append(recipients, Recipient{Kind: inferKind(address), Address: address})
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no rows of %s carry %q", ErrNoRecipients, cfg.QueryTable, cfg.QueryField)
	}

	return recipients, nil
}

// parseFilterExpression parses a simple "field = value" expression.
func parseFilterExpression(expr string) (string, string, bool) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}

	field := strings.TrimSpace(parts[0])
	value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

	if field == "" {
		return "", "", false
	}

	return field, value, true
}

var phonePattern = regexp.MustCompile(`^\+?[\d\s()-]{7,}$`)

// inferKind guesses whether an address is a chat reference, a phone-shaped
// string, or an opaque user id.
func inferKind(address string) string {
	if strings.HasPrefix(address, "chat_") || strings.HasPrefix(address, "chat-") {
		return KindChat
	}

	if phonePattern.MatchString(address) {
		return KindPhone
	}

	return KindUser
}

func (d *Dispatcher) deliver(ctx context.Context, workspaceID, channel string, recipient Recipient, message string) DeliveryResult {
	result := DeliveryResult{Recipient: recipient, Channel: channel}

	switch channel {
	case ChannelChat:
		err := d.injectChatMessage(ctx, workspaceID, recipient, message)
		if err != nil {
			result.Status = "failed"
			result.Error = err.Error()

			return result
		}

		result.Success = true
		result.Status = "delivered"

	case ChannelInApp:
		_, err := d.store.Insert(ctx, workspaceID, NotificationsCollection, store.Record{
			"recipient": recipient.Address,
			"message":   message,
			"read":      false,
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			result.Status = "failed"
			result.Error = err.Error()

			return result
		}

		result.Success = true
		result.Status = "stored"

	case ChannelWhatsapp:
		// Accepted but not delivered: there is no live whatsapp integration.
		result.Success = true
		result.Status = "pending"

	default:
		result.Status = "failed"
		result.Error = fmt.Sprintf("unknown channel %q", channel)
	}

	return result
}

// injectChatMessage writes the message into an existing chat, creating the
// conversation first when the recipient is not already a chat reference.
func (d *Dispatcher) injectChatMessage(ctx context.Context, workspaceID string, recipient Recipient, message string) error {
	chatID := recipient.Address

	if recipient.Kind != KindChat && recipient.Kind != KindAgent {
		chat, err := d.store.Insert(ctx, workspaceID, ChatsCollection, store.Record{
			"participant": recipient.Address,
			"createdAt":   time.Now().UTC().Format(time.RFC3339),
			"createdBy":   "flow",
		})
		if err != nil {
			return fmt.Errorf("failed to create chat for %s: %w", recipient.Address, err)
		}

		chatID = chat.ID()
	}

	_, err := d.store.Insert(ctx, workspaceID, ChatMessagesCollection, store.Record{
		"chatId":    chatID,
		"message":   message,
		"sender":    "flow",
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to inject message into chat %s: %w", chatID, err)
	}

	return nil
}
