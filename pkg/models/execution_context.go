package models

import "strings"

// Reserved ExecutionContext keys written by the engine itself.
const (
	ContextKeyWorkspaceID   = "_workspaceId"
	ContextKeyTableID       = "_tableId"
	ContextKeyTriggerType   = "_triggerType"
	ContextKeyChatID        = "_chatId"
	ContextKeyAgentID       = "_agentId"
	ContextKeyCreatedRecord = "_createdRecord"
)

// ExecutionContext is the mutable key/value scope threaded through one flow
// run. It is seeded from the triggering record's fields plus the reserved
// keys, and it is the only channel through which nodes communicate. Each run
// gets a fresh context; nothing survives the run except the execution log.
type ExecutionContext struct {
	values        map[string]any
	lastCondition *ConditionCheck
}

// NewExecutionContext creates a context seeded with a copy of the given values.
func NewExecutionContext(seed map[string]any) *ExecutionContext {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}

	return &ExecutionContext{values: values}
}

// Get returns the value for a plain key.
func (c *ExecutionContext) Get(key string) (any, bool) {
	v, ok := c.values[key]

	return v, ok
}

// Set stores a value under a plain key.
func (c *ExecutionContext) Set(key string, value any) {
	c.values[key] = value
}

// Lookup resolves a dotted path (e.g. "productData.stock") against the
// context, descending through nested maps.
func (c *ExecutionContext) Lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")

	var current any = c.values

	for _, part := range parts {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}

			current = v
		case *ExecutionContext:
			v, ok := m.values[part]
			if !ok {
				return nil, false
			}

			current = v
		default:
			return nil, false
		}
	}

	return current, true
}

// Values returns the underlying map. Callers must not retain it across runs.
func (c *ExecutionContext) Values() map[string]any {
	return c.values
}

// Snapshot returns a copy of the context values, used when a pending action
// has to carry the scope it was captured in.
func (c *ExecutionContext) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}

	return snapshot
}

// SetLastCondition retains the most recently evaluated condition so a later
// error action can echo it as validation info.
func (c *ExecutionContext) SetLastCondition(check *ConditionCheck) {
	c.lastCondition = check
}

// LastCondition returns the most recently evaluated condition, or nil.
func (c *ExecutionContext) LastCondition() *ConditionCheck {
	return c.lastCondition
}

// ConditionCheck records the field, operator, and both sides of the last
// condition evaluation for diagnostic use.
type ConditionCheck struct {
	Field     string `json:"field"`
	Operator  string `json:"operator"`
	Expected  any    `json:"expected"`
	Actual    any    `json:"actual"`
	Satisfied bool   `json:"satisfied"`
}
