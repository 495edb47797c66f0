// Package persistence provides the storage abstraction for flow definitions.
package persistence

import (
	"context"

	"github.com/recordflow/recordflow/pkg/models"
)

type Persistence interface {
	// Flows returns all flow definitions of a workspace.
	Flows(ctx context.Context, workspaceID string) ([]*models.Flow, error)
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
