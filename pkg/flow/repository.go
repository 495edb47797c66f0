// Package flow provides the repository that loads and filters automation
// definitions for a workspace.
package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/persistence"
)

type Repository struct {
	persistence persistence.Persistence
}

func NewRepository(persistence persistence.Persistence) *Repository {
	return &Repository{persistence: persistence}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FlowsFor returns the active flows of a workspace matching the trigger type
// and target collection. Absence of automation is a normal outcome: no
// matches means an empty list, never an error.
func (r *Repository) FlowsFor(ctx context.Context, workspaceID string, triggerType models.TriggerType, tableID string) ([]*models.Flow, error) {
	flows, err := r.persistence.Flows(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Flow, 0)

	for _, flow := range flows {
		if !flow.Active {
			continue
		}

		if flow.TriggerType != triggerType || flow.TriggerTable != tableID {
			continue
		}

		matched = append(matched, flow)
	}

	return matched, nil
}

func (r *Repository) FetchAll(ctx context.Context, workspaceID string) ([]*models.Flow, error) {
	flows, err := r.persistence.Flows(ctx, workspaceID)
	if err != nil {
		return make([]*models.Flow, 0), err
	}

	return flows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	return r.persistence.FlowByID(ctx, id)
}

func (r *Repository) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	err := ValidateDefinition(flow)
	if err != nil {
		return nil, err
	}

	if flow.ID == "" {
		flow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	flow.CreatedAt = now
	flow.UpdatedAt = now

	err = r.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

func (r *Repository) Update(ctx context.Context, id string, flow *models.Flow) (*models.Flow, error) {
	err := ValidateDefinition(flow)
	if err != nil {
		return nil, err
	}

	existing, err := r.persistence.FlowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	flow.ID = id
	flow.CreatedAt = existing.CreatedAt
	flow.UpdatedAt = time.Now().UTC()

	err = r.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.persistence.FlowByID(ctx, id)
	if err != nil {
		return err
	}

	return r.persistence.DeleteFlow(ctx, id)
}
