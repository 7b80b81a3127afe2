package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/domain/entity"
)

func newDeployer(proc *fakeProc) *LocalProcessDeployer {
	return NewLocalProcessDeployer(proc, 8001, "localhost", "python", 0, discard())
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestDeployFlaskWithRequirements(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "main.py")
	touch(t, dir, "requirements.txt")
	proc := &fakeProc{}

	d, err := newDeployer(proc).Deploy(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []int{8001}, proc.freed)
	require.Len(t, proc.runs, 1)
	assert.Equal(t, []string{dir, "python", "-m", "pip", "install", "-r", "requirements.txt"}, proc.runs[0])

	require.Len(t, proc.starts, 1)
	start := proc.starts[0]
	assert.Equal(t, dir, start.dir)
	assert.Equal(t, []string{"-m", "flask", "run", "--port", "8001"}, start.args)
	assert.Contains(t, start.env, "FLASK_APP=main.py")

	assert.Equal(t, entity.DeployModeFlask, d.Mode)
	assert.Equal(t, "main.py", d.Entry)
	assert.Equal(t, 4242, d.PID)
	assert.Equal(t, "http://localhost:8001", d.URL)
}

func TestDeployAppPyEntry(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "app.py")
	proc := &fakeProc{}

	d, err := newDeployer(proc).Deploy(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, proc.runs)
	assert.Equal(t, "app.py", d.Entry)
	assert.Contains(t, proc.starts[0].env, "FLASK_APP=app.py")
}

func TestDeployStaticFallback(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	proc := &fakeProc{}

	d, err := newDeployer(proc).Deploy(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, entity.DeployModeStatic, d.Mode)
	assert.Equal(t, []string{"-m", "http.server", "8001"}, proc.starts[0].args)
}

func TestDeployInstallFailure(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "main.py")
	touch(t, dir, "requirements.txt")
	proc := &fakeProc{runErr: errors.New("exit status 1"), runStderr: "No matching distribution found for flaskk"}

	_, err := newDeployer(proc).Deploy(context.Background(), dir)

	var installErr *entity.DependencyInstallError
	require.ErrorAs(t, err, &installErr)
	assert.Contains(t, installErr.Stderr, "flaskk")
	assert.Contains(t, err.Error(), "flaskk")
	assert.Empty(t, proc.starts)
}

func TestDeployToleratesPortLookupFailure(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	proc := &fakeProc{freeErr: errors.New("permission denied")}

	_, err := newDeployer(proc).Deploy(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, proc.starts, 1)
}

func TestDeployStartFailure(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	proc := &fakeProc{startErr: errors.New("python: not found")}

	_, err := newDeployer(proc).Deploy(context.Background(), dir)
	assert.ErrorContains(t, err, "python: not found")
}

func TestDeployMissingDir(t *testing.T) {
	_, err := newDeployer(&fakeProc{}).Deploy(context.Background(), filepath.Join(t.TempDir(), "gone"))
	assert.Error(t, err)
}

func TestDeploySettleDelayHonorsContext(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	proc := &fakeProc{}
	d := NewLocalProcessDeployer(proc, 8001, "localhost", "python", time.Hour, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Deploy(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, proc.starts)
}
