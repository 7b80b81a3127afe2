package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"appforge/internal/domain/entity"
	"appforge/internal/infrastructure/metrics"
)

const requirementsFile = "requirements.txt"

// serverScripts are the recognized Flask entry points, in priority order.
var serverScripts = []string{"main.py", "app.py"}

type Deployer interface {
	Deploy(ctx context.Context, dir string) (*entity.Deployment, error)
}

type processController interface {
	FreePort(ctx context.Context, port int) ([]int32, error)
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
	StartDetached(dir string, env []string, name string, args ...string) (int, error)
}

// LocalProcessDeployer runs the generated app as a detached local process on
// one fixed port. There is a single deployment slot: each deploy kills
// whatever holds the port, so the last deployment wins.
type LocalProcessDeployer struct {
	proc        processController
	port        int
	publicHost  string
	pythonBin   string
	settleDelay time.Duration
	logger      *slog.Logger
}

var _ Deployer = (*LocalProcessDeployer)(nil)

func NewLocalProcessDeployer(
	proc processController,
	port int,
	publicHost, pythonBin string,
	settleDelay time.Duration,
	logger *slog.Logger,
) *LocalProcessDeployer {
	return &LocalProcessDeployer{
		proc:        proc,
		port:        port,
		publicHost:  publicHost,
		pythonBin:   pythonBin,
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// URL is the address the deployment slot is served on.
func (d *LocalProcessDeployer) URL() string {
	return fmt.Sprintf("http://%s:%d", d.publicHost, d.port)
}

func (d *LocalProcessDeployer) Deploy(ctx context.Context, dir string) (*entity.Deployment, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("deployment directory not found %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("deployment path is not a directory: %s", dir)
	}

	// 1) free the slot; failure here is tolerated
	if _, err := d.proc.FreePort(ctx, d.port); err != nil {
		d.logger.Warn("could not free deploy port, continuing", "port", d.port, "err", err)
	}

	// 2) let the port settle
	if d.settleDelay > 0 {
		select {
		case <-time.After(d.settleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// 3) dependencies
	if fileExists(filepath.Join(dir, requirementsFile)) {
		stderr, err := d.proc.Run(ctx, dir, d.pythonBin, "-m", "pip", "install", "-r", requirementsFile)
		if err != nil {
			metrics.IncError("deployer", "pip_install")
			metrics.IncDeployment("unknown", "failed")
			d.logger.Error("failed to install dependencies for the generated app", "dir", dir, "stderr", stderr)
			return nil, &entity.DependencyInstallError{Manifest: requirementsFile, Stderr: stderr, Err: err}
		}
		d.logger.Info("dependencies for generated app installed", "dir", dir)
	}

	// 4) entry mode
	deployment := &entity.Deployment{Dir: dir, Port: d.port, URL: d.URL()}
	port := strconv.Itoa(d.port)
	var pid int
	if entry, ok := serverEntry(dir); ok {
		deployment.Mode = entity.DeployModeFlask
		deployment.Entry = entry
		env := append(os.Environ(), "FLASK_APP="+entry)
		pid, err = d.proc.StartDetached(dir, env, d.pythonBin, "-m", "flask", "run", "--port", port)
	} else {
		deployment.Mode = entity.DeployModeStatic
		pid, err = d.proc.StartDetached(dir, os.Environ(), d.pythonBin, "-m", "http.server", port)
	}
	if err != nil {
		metrics.IncError("deployer", "start")
		metrics.IncDeployment(string(deployment.Mode), "failed")
		return nil, fmt.Errorf("failed to deploy the generated app: %w", err)
	}

	// 5) fire and forget
	deployment.PID = pid
	metrics.IncDeployment(string(deployment.Mode), "started")
	d.logger.Info("application deployed locally",
		"dir", dir, "mode", deployment.Mode, "pid", pid, "url", deployment.URL)
	return deployment, nil
}

func serverEntry(dir string) (string, bool) {
	for _, name := range serverScripts {
		if fileExists(filepath.Join(dir, name)) {
			return name, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
