// Package engine implements the trigger-driven flow execution engine: a
// small interpreter for directed graphs of typed nodes, with branching
// driven by runtime results and two-phase side-effect deferral.
package engine

import (
	"errors"
	"fmt"

	"github.com/recordflow/recordflow/pkg/models"
)

// ErrFlowBlocked marks a run terminated by an error-type action node. It is
// intentional and user-facing, not an infrastructure failure.
var ErrFlowBlocked = errors.New("flow blocked")

// BlockError carries the user-facing message of an error action, plus the
// last evaluated condition so the caller can present an actionable
// remediation (e.g. "only 5 units available").
type BlockError struct {
	Message    string
	Validation *models.ConditionCheck
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%v: %s", ErrFlowBlocked, e.Message)
}

func (e *BlockError) Unwrap() error {
	return ErrFlowBlocked
}
