package repository

import "context"

// WorkspaceRepository owns the on-disk session workspaces.
type WorkspaceRepository interface {
	Create(ctx context.Context, name string) (string, error)
	Materialize(ctx context.Context, dir, agentOutput string) (int, error)
	Locate(ctx context.Context, root string) (string, bool, error)
}
