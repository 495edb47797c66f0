package engine

import (
	"context"
	"log/slog"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/notify"
	"github.com/recordflow/recordflow/pkg/store"
)

// maxNodeVisits caps a run at 20 node visits so a flow containing a cycle
// still terminates. Exceeding the cap is a silent truncation, not an error.
const maxNodeVisits = 20

// branchSignal is the outcome a condition or query node leaves behind for
// edge disambiguation.
type branchSignal int

const (
	branchNone branchSignal = iota
	branchYes
	branchNo
)

// interpreter walks one flow graph. It is created fresh per run and never
// shared: node execution is strictly sequential within a run.
type interpreter struct {
	store      store.RecordStore
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

// runState is the mutable state of a single run. The pre-commit fields are
// only populated when precommit is set.
type runState struct {
	flow    *models.Flow
	ctx     *models.ExecutionContext
	results []models.NodeResult

	precommit     bool
	creatingTable string
	mergedFields  map[string]any
	pending       []models.PendingAction
}

// run walks the graph from the trigger node until the edges are exhausted,
// the visit cap is reached, or an error terminates the run. The returned
// error is either a *BlockError (error action reached) or an execution
// failure; nil means the run completed.
func (in *interpreter) run(ctx context.Context, st *runState) error {
	node := st.flow.TriggerNode()
	if node == nil {
		// Definition error: nothing to start from. Logged and skipped, the
		// run completes with zero nodes executed.
		in.logger.WarnContext(ctx, "Flow has no trigger node", "flow_id", st.flow.ID)

		return nil
	}

	for visits := 0; node != nil && visits < maxNodeVisits; visits++ {
		signal, result, err := in.executeNode(ctx, st, node)

		st.results = append(st.results, result)

		if err != nil {
			return err
		}

		next := resolveNextEdge(st.flow.OutgoingEdges(node.ID), signal)
		if next == nil {
			return nil
		}

		node = st.flow.NodeByID(next.Target)
		if node == nil {
			in.logger.WarnContext(ctx, "Edge points at a missing node; stopping run",
				"flow_id", st.flow.ID, "edge_id", next.ID, "target", next.Target)

			return nil
		}
	}

	return nil
}

// executeNode dispatches on the closed set of node kinds. Unknown node
// types are a definition error: logged, skipped, and the walk continues.
func (in *interpreter) executeNode(ctx context.Context, st *runState, node *models.Node) (branchSignal, models.NodeResult, error) {
	switch node.Type {
	case models.NodeTypeTrigger:
		return branchNone, models.NodeResult{
			NodeID:   node.ID,
			NodeType: node.Type,
			Status:   models.NodeStatusSuccess,
		}, nil

	case models.NodeTypeQuery:
		return in.executeQuery(ctx, st, node)

	case models.NodeTypeCondition:
		return in.executeCondition(ctx, st, node)

	case models.NodeTypeAction, models.NodeTypeNotification:
		return in.executeAction(ctx, st, node)

	default:
		in.logger.WarnContext(ctx, "Unknown node type; skipping node",
			"flow_id", st.flow.ID, "node_id", node.ID, "node_type", node.Type)

		return branchNone, models.NodeResult{
			NodeID:   node.ID,
			NodeType: node.Type,
			Status:   models.NodeStatusSkipped,
		}, nil
	}
}

// resolveNextEdge picks the outgoing edge for the branch signal the node
// just produced. One edge is followed unconditionally. Among many, the
// affirmative signal falls back to the first edge when nothing matches,
// while a negative signal with no matching edge terminates the path.
func resolveNextEdge(edges []*models.Edge, signal branchSignal) *models.Edge {
	switch len(edges) {
	case 0:
		return nil
	case 1:
		return edges[0]
	}

	switch signal {
	case branchYes:
		for _, edge := range edges {
			if edge.MatchesYes() {
				return edge
			}
		}

		return edges[0]

	case branchNo:
		for _, edge := range edges {
			if edge.MatchesNo() {
				return edge
			}
		}

		return nil

	default:
		return edges[0]
	}
}
