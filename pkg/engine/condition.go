package engine

import (
	"context"
	"strconv"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/template"
)

// executeCondition evaluates field (operator) value, where field is a
// dot-path into the context and value may itself be a template. The ordering
// operators coerce both sides to numbers; equality compares resolved values
// without forced coercion. The evaluation is retained in the context for a
// later error action to echo as validation info.
func (in *interpreter) executeCondition(ctx context.Context, st *runState, node *models.Node) (branchSignal, models.NodeResult, error) {
	cfg := node.ConditionConfig()

	actual, _ := st.ctx.Lookup(cfg.Field)
	expected := template.RenderValue(cfg.Value, st.ctx)

	satisfied := compare(actual, expected, cfg.Operator)

	check := &models.ConditionCheck{
		Field:     cfg.Field,
		Operator:  cfg.Operator,
		Expected:  expected,
		Actual:    actual,
		Satisfied: satisfied,
	}
	st.ctx.SetLastCondition(check)

	in.logger.DebugContext(ctx, "Condition evaluated",
		"flow_id", st.flow.ID, "node_id", node.ID,
		"field", cfg.Field, "operator", cfg.Operator, "satisfied", satisfied)

	result := models.NodeResult{
		NodeID:   node.ID,
		NodeType: node.Type,
		Status:   models.NodeStatusSuccess,
		Output: map[string]any{
			"field":     cfg.Field,
			"operator":  cfg.Operator,
			"satisfied": satisfied,
		},
	}

	if satisfied {
		return branchYes, result, nil
	}

	return branchNo, result, nil
}

func compare(actual, expected any, operator string) bool {
	switch operator {
	case ">", ">=", "<", "<=":
		left, leftOK := toFloat(actual)
		right, rightOK := toFloat(expected)

		if !leftOK || !rightOK {
			return false
		}

		switch operator {
		case ">":
			return left > right
		case ">=":
			return left >= right
		case "<":
			return left < right
		default:
			return left <= right
		}

	case "!=":
		return !looseEqual(actual, expected)

	default: // "==" and unknown operators fall back to equality
		return looseEqual(actual, expected)
	}
}

// looseEqual compares numerically when both sides are numbers, otherwise on
// string form.
func looseEqual(actual, expected any) bool {
	left, leftOK := toFloat(actual)
	right, rightOK := toFloat(expected)

	if leftOK && rightOK {
		return left == right
	}

	return template.FormatValue(actual) == template.FormatValue(expected)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		number, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return number, true
	default:
		return 0, false
	}
}
