package engine

import (
	"context"
	"fmt"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/store"
	"github.com/recordflow/recordflow/pkg/template"
)

// queryFetchLimit bounds how many candidate records a query node retrieves.
const queryFetchLimit = 100

// executeQuery looks up a record in the target collection, normalizes the
// search input back to the stored canonical form on a match, and stores the
// result under the node's output variable. Found/not-found becomes the
// branch signal for downstream edge selection.
func (in *interpreter) executeQuery(ctx context.Context, st *runState, node *models.Node) (branchSignal, models.NodeResult, error) {
	cfg := node.QueryConfig()

	result := models.NodeResult{NodeID: node.ID, NodeType: node.Type}

	if cfg.TargetTable == "" {
		in.logger.WarnContext(ctx, "Query node without targetTable; skipping",
			"flow_id", st.flow.ID, "node_id", node.ID)

		result.Status = models.NodeStatusSkipped

		return branchNone, result, nil
	}

	workspaceID, _ := st.ctx.Get(models.ContextKeyWorkspaceID)

	records, err := in.store.Find(ctx, template.FormatValue(workspaceID), cfg.TargetTable, nil, store.FindOptions{Limit: queryFetchLimit})
	if err != nil {
		result.Status = models.NodeStatusFailed
		result.Output = map[string]any{"error": err.Error()}

		return branchNone, result, fmt.Errorf("query node %s: %w", node.ID, err)
	}

	// Template/master rows are excluded by convention.
	candidates := records[:0:0]
	for _, record := range records {
		if !record.IsTemplate() {
			candidates = append(candidates, record)
		}
	}

	searchValue := in.querySearchValue(st, cfg)

	match, found := findRecord(candidates, cfg.FilterField, searchValue)
	if !found {
		result.Status = models.NodeStatusNotFound
		result.Output = map[string]any{"searched": searchValue}

		return branchNo, result, nil
	}

	// Canonical write-back: when the match differs textually from the input
	// (capitalization, accents), later templating uses the stored form.
	if cfg.FilterField != "" {
		canonical := match.String(cfg.FilterField)
		if canonical != searchValue {
			st.ctx.Set(cfg.FilterValueField, canonical)
		}
	}

	st.ctx.Set(cfg.OutputVar, map[string]any(match))

	result.Status = models.NodeStatusSuccess
	result.Output = map[string]any{"recordId": match.ID(), "outputVar": cfg.OutputVar}

	return branchYes, result, nil
}

// querySearchValue resolves the filter value from the trigger context or the
// fixed literal configured on the node.
func (in *interpreter) querySearchValue(st *runState, cfg models.QueryConfig) string {
	switch cfg.FilterValueType {
	case models.FilterValueFixed:
		return template.FormatValue(template.RenderValue(cfg.FilterValueFixed, st.ctx))
	default:
		value, _ := st.ctx.Lookup(cfg.FilterValueField)

		return template.FormatValue(value)
	}
}

// findRecord applies the query matching semantics: case- and
// accent-insensitive exact match first, then the partial/normalized
// fallback. Without a filter field the first retrieved record wins.
func findRecord(records []store.Record, filterField, searchValue string) (store.Record, bool) {
	if filterField == "" {
		if len(records) == 0 {
			return nil, false
		}

		return records[0], true
	}

	for _, record := range records {
		if textMatches(record.String(filterField), searchValue, false) {
			return record, true
		}
	}

	for _, record := range records {
		if textMatches(record.String(filterField), searchValue, true) {
			return record, true
		}
	}

	return nil, false
}
