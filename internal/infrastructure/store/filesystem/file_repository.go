package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"appforge/internal/domain/entity"
	"appforge/internal/domain/repository"
	"appforge/internal/infrastructure/marker"
	"appforge/internal/infrastructure/metrics"
)

type FileRepository struct {
	basePath string
	policy   entity.PathPolicy
	parser   *marker.Parser
	logger   *slog.Logger
}

var _ repository.WorkspaceRepository = (*FileRepository)(nil)

func (r *FileRepository) GetBasePath() string {
	return r.basePath
}

func NewFileRepository(basePath string, policy entity.PathPolicy, logger *slog.Logger) (*FileRepository, error) {
	info, err := os.Stat(basePath)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(basePath, 0o755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", basePath, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", basePath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", basePath)
	}

	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	if !policy.Valid() {
		policy = entity.PathPolicyWarn
	}

	return &FileRepository{
		basePath: basePath,
		policy:   policy,
		parser:   marker.NewParser(),
		logger:   logger,
	}, nil
}

// Create makes the session workspace. An existing directory is accepted.
func (r *FileRepository) Create(ctx context.Context, name string) (string, error) {
	dir := filepath.Join(r.basePath, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.IncError("workspace", "create_dir")
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return dir, nil
}

// Materialize parses the agent output and writes every block under dir in
// order of appearance. It returns the number of files written.
func (r *FileRepository) Materialize(ctx context.Context, dir, agentOutput string) (int, error) {
	files := r.parser.Parse(agentOutput)
	if len(files) == 0 {
		metrics.IncError("workspace", "no_files")
		return 0, entity.ErrNoFilesGenerated
	}

	written := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		filePath := filepath.Join(dir, file.Path)
		if !within(dir, filePath) {
			if r.policy == entity.PathPolicyReject {
				metrics.IncPathEscape("rejected")
				return written, fmt.Errorf("%w: %s", entity.ErrPathEscapesWorkspace, file.Path)
			}
			metrics.IncPathEscape("written")
			r.logger.Warn("generated path escapes workspace", "path", file.Path, "resolved", filePath)
		}

		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			metrics.IncError("workspace", "mkdir")
			return written, fmt.Errorf("failed to create directory for %s: %w", file.Path, err)
		}
		if err := os.WriteFile(filePath, []byte(file.Content), 0o644); err != nil {
			metrics.IncError("workspace", "write_file")
			return written, fmt.Errorf("failed to write file %s: %w", file.Path, err)
		}
		r.logger.Debug("created file", "path", filePath)
		written++
	}

	metrics.AddFilesMaterialized(written)
	return written, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
