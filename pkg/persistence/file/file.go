// Package file provides file-based persistence for flow definitions, one
// JSON document per flow.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/recordflow/recordflow/pkg/models"
	"github.com/recordflow/recordflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is tolerated.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (p *Persistence) flowsDir() string {
	return filepath.Join(p.root, "flows")
}

func (p *Persistence) flowPath(id string) string {
	return filepath.Join(p.flowsDir(), id+".json")
}

func (p *Persistence) Flows(ctx context.Context, workspaceID string) ([]*models.Flow, error) {
	root := os.DirFS(p.flowsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		flow, err := p.FlowByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", id, err)
		}

		if workspaceID == "" || flow.WorkspaceID == workspaceID {
			flows = append(flows, flow)
		}
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].CreatedAt.Before(flows[j].CreatedAt)
	})

	return flows, nil
}

func (p *Persistence) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	payload, err := os.ReadFile(p.flowPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	var flow models.Flow

	err = json.Unmarshal(payload, &flow)
	if err != nil {
		return nil, persistence.NewFlowError("FlowByID", id, fmt.Errorf("%w: %w", persistence.ErrInvalidFlowDefinition, err))
	}

	return &flow, nil
}

func (p *Persistence) SaveFlow(_ context.Context, flow *models.Flow) error {
	err := os.MkdirAll(p.flowsDir(), 0o755)
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	payload, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	err = os.WriteFile(p.flowPath(flow.ID), payload, 0o644)
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteFlow(_ context.Context, id string) error {
	err := os.Remove(p.flowPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
		}

		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
