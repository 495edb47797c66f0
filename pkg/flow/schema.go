package flow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/recordflow/recordflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDefinition marks a flow definition that fails structural or
// semantic validation on save.
var ErrInvalidDefinition = errors.New("invalid flow definition")

const definitionSchema = `{
	"type": "object",
	"required": ["name", "workspaceId", "triggerType", "triggerTable", "nodes"],
	"properties": {
		"name": {"type": "string", "minLength": 3},
		"workspaceId": {"type": "string", "minLength": 1},
		"active": {"type": "boolean"},
		"triggerType": {"enum": ["create", "update", "delete", "beforeCreate", "schedule"]},
		"triggerTable": {"type": "string", "minLength": 1},
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"type": {"enum": ["trigger", "query", "condition", "action", "notification"]},
					"data": {"type": ["object", "null"]}
				}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "target"],
				"properties": {
					"id": {"type": "string"},
					"source": {"type": "string", "minLength": 1},
					"target": {"type": "string", "minLength": 1},
					"label": {"type": "string"},
					"sourceHandle": {"type": "string"}
				}
			}
		}
	}
}`

// IsInvalidDefinition reports whether the error is a definition validation
// failure.
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}

var structValidator = validator.New()

// ValidateDefinition checks a flow definition before it is stored: JSON
// schema shape, struct tags, and the single-trigger-node invariant.
func ValidateDefinition(flow *models.Flow) error {
	payload, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if !result.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, result.Errors()[0].String())
	}

	err = structValidator.Struct(flow)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	triggers := 0

	for _, node := range flow.Nodes {
		if node.Type == models.NodeTypeTrigger {
			triggers++
		}
	}

	if triggers != 1 {
		return fmt.Errorf("%w: expected exactly one trigger node, found %d", ErrInvalidDefinition, triggers)
	}

	return nil
}
