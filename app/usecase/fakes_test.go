package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"appforge/internal/domain/entity"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type startCall struct {
	dir  string
	env  []string
	name string
	args []string
}

type fakeProc struct {
	mu        sync.Mutex
	freed     []int
	runs      [][]string
	starts    []startCall
	freeErr   error
	runErr    error
	runStderr string
	startErr  error
}

func (f *fakeProc) FreePort(_ context.Context, port int) ([]int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freed = append(f.freed, port)
	return nil, f.freeErr
}

func (f *fakeProc) Run(_ context.Context, dir string, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, append([]string{dir, name}, args...))
	return f.runStderr, f.runErr
}

func (f *fakeProc) StartDetached(dir string, env []string, name string, args ...string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.starts = append(f.starts, startCall{dir: dir, env: env, name: name, args: args})
	return 4242, nil
}

func (f *fakeProc) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type fakeAgent struct {
	output string
	err    error
	panics bool

	mu      sync.Mutex
	prompts []string
	turns   []int
}

func (a *fakeAgent) Name() string { return "fake" }

func (a *fakeAgent) Generate(_ context.Context, prompt string, maxTurns int) (string, error) {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	a.turns = append(a.turns, maxTurns)
	a.mu.Unlock()
	if a.panics {
		panic("agent blew up")
	}
	return a.output, a.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) all() []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entity.Notification(nil), n.sent...)
}

var errBoom = errors.New("boom")
