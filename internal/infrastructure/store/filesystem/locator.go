package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// entryCandidates are searched in priority order; each one is a full walk.
var entryCandidates = []string{"main.py", "app.py", "index.html"}

var errFound = errors.New("found")

// Locate returns the directory holding the first recognized entry artifact
// under root.
func (r *FileRepository) Locate(ctx context.Context, root string) (string, bool, error) {
	for _, name := range entryCandidates {
		dir, ok, err := findFile(ctx, root, name)
		if err != nil {
			return "", false, fmt.Errorf("search %s: %w", name, err)
		}
		if ok {
			return dir, true, nil
		}
	}
	return "", false, nil
}

func findFile(ctx context.Context, root, name string) (string, bool, error) {
	var dir string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			dir = filepath.Dir(path)
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return dir, true, nil
	}
	if err != nil {
		return "", false, err
	}
	return "", false, nil
}
