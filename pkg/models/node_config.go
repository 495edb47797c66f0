package models

// FilterValueType says where a query or action filter value comes from.
type FilterValueType string

const (
	FilterValueTrigger FilterValueType = "trigger" // read from the triggering record's fields
	FilterValueFixed   FilterValueType = "fixed"   // literal value from the node config
)

// ActionType is the closed set of behaviors an action node can have.
type ActionType string

const (
	ActionCreate       ActionType = "create"
	ActionUpdate       ActionType = "update"
	ActionUpsert       ActionType = "upsert"
	ActionNotification ActionType = "notification"
	ActionSendMessage  ActionType = "send_message"
	ActionError        ActionType = "error"
	ActionAllow        ActionType = "allow"
)

// QueryConfig is the decoded configuration of a query node.
type QueryConfig struct {
	TargetTable      string
	FilterField      string
	FilterValueType  FilterValueType
	FilterValueField string
	FilterValueFixed any
	OutputVar        string
}

// QueryConfig decodes the node's data as a query configuration.
func (n *Node) QueryConfig() QueryConfig {
	cfg := QueryConfig{
		TargetTable:      configString(n.Data, "targetTable", "table"),
		FilterField:      configString(n.Data, "filterField"),
		FilterValueType:  FilterValueType(configString(n.Data, "filterValueType")),
		FilterValueField: configString(n.Data, "filterValueField"),
		FilterValueFixed: n.Data["filterValueFixed"],
		OutputVar:        configString(n.Data, "outputVar", "output"),
	}

	if cfg.FilterValueType == "" {
		cfg.FilterValueType = FilterValueTrigger
	}

	if cfg.FilterValueField == "" {
		cfg.FilterValueField = cfg.FilterField
	}

	if cfg.OutputVar == "" {
		cfg.OutputVar = "queryResult"
	}

	return cfg
}

// ConditionConfig is the decoded configuration of a condition node.
type ConditionConfig struct {
	Field    string
	Operator string
	Value    any
}

// ConditionConfig decodes the node's data as a condition configuration.
func (n *Node) ConditionConfig() ConditionConfig {
	return ConditionConfig{
		Field:    configString(n.Data, "field"),
		Operator: configString(n.Data, "operator"),
		Value:    n.Data["value"],
	}
}

// ActionConfig is the decoded configuration of an action or notification node.
type ActionConfig struct {
	ActionType       ActionType
	TargetTable      string
	Fields           map[string]any
	Filter           map[string]any
	FilterField      string
	FilterValueType  FilterValueType
	FilterValueField string
	FilterValueFixed any
	Message          MessageConfig
}

// MessageConfig carries the send_message / notification parameters.
type MessageConfig struct {
	Message     string
	TargetType  string // origin_chat, fixed, record_field, table_query
	Channel     string // chat, in_app, whatsapp
	TargetValue string // literal address for targetType=fixed
	TargetField string // record field name for targetType=record_field
	QueryTable  string // collection for targetType=table_query
	QueryField  string // address field within the queried collection
	QueryFilter string // optional "field = value" expression
}

// ActionConfig decodes the node's data as an action configuration. A bare
// notification node decodes to actionType=notification.
func (n *Node) ActionConfig() ActionConfig {
	cfg := ActionConfig{
		ActionType:       ActionType(configString(n.Data, "actionType")),
		TargetTable:      configString(n.Data, "targetTable", "table"),
		Fields:           configMap(n.Data, "fields"),
		Filter:           configMap(n.Data, "filter"),
		FilterField:      configString(n.Data, "filterField"),
		FilterValueType:  FilterValueType(configString(n.Data, "filterValueType")),
		FilterValueField: configString(n.Data, "filterValueField"),
		FilterValueFixed: n.Data["filterValueFixed"],
		Message: MessageConfig{
			Message:     configString(n.Data, "message"),
			TargetType:  configString(n.Data, "targetType"),
			Channel:     configString(n.Data, "channel"),
			TargetValue: configString(n.Data, "targetValue"),
			TargetField: configString(n.Data, "targetField"),
			QueryTable:  configString(n.Data, "queryTable"),
			QueryField:  configString(n.Data, "queryField"),
			QueryFilter: configString(n.Data, "queryFilter"),
		},
	}

	if n.Type == NodeTypeNotification && cfg.ActionType == "" {
		cfg.ActionType = ActionNotification
	}

	if cfg.FilterValueField == "" {
		cfg.FilterValueField = cfg.FilterField
	}

	return cfg
}

func configString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}

	return ""
}

func configMap(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}

	return nil
}
