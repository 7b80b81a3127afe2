// Package process wraps the OS-level operations the deployer needs: freeing a
// TCP port, running a blocking command and launching a detached one.
package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

type Controller struct {
	logger *slog.Logger
}

func NewController(logger *slog.Logger) *Controller {
	return &Controller{logger: logger}
}

// FreePort kills every process listening on the TCP port and returns their
// PIDs. The current process is never killed.
func (c *Controller) FreePort(ctx context.Context, port int) ([]int32, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, fmt.Errorf("list tcp connections: %w", err)
	}

	self := int32(os.Getpid())
	seen := make(map[int32]struct{})
	var killed []int32
	for _, conn := range conns {
		if int(conn.Laddr.Port) != port || conn.Status != "LISTEN" {
			continue
		}
		pid := conn.Pid
		if pid <= 0 || pid == self {
			continue
		}
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}

		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			c.logger.Warn("port owner vanished", "pid", pid, "port", port, "err", err)
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			c.logger.Warn("failed to kill port owner", "pid", pid, "port", port, "err", err)
			continue
		}
		c.logger.Info("killed process bound to deploy port", "pid", pid, "port", port)
		killed = append(killed, pid)
	}
	return killed, nil
}

// Run executes the command in dir and waits for it. Stderr is returned so
// callers can report it on failure.
func (c *Controller) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// StartDetached launches the command in its own process group and returns
// without waiting. Output is discarded; the child is reaped in the background.
func (c *Controller) StartDetached(dir string, env []string, name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = env
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", name, err)
	}
	pid := cmd.Process.Pid

	go func() {
		err := cmd.Wait()
		c.logger.Info("deployed process exited", "pid", pid, "err", err)
	}()
	return pid, nil
}
