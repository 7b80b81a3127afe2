package llm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"appforge/internal/domain/repository"
	"appforge/internal/infrastructure/metrics"
)

const maxEventSize = 16 << 20

// ClaudeCLIAgent drives the claude CLI in print mode and collects the text
// blocks of its assistant messages from the stream-json output.
type ClaudeCLIAgent struct {
	bin     string
	timeout time.Duration
	logger  *slog.Logger
}

var _ repository.AgentGenerator = (*ClaudeCLIAgent)(nil)

func NewClaudeCLIAgent(bin string, timeout time.Duration, logger *slog.Logger) *ClaudeCLIAgent {
	return &ClaudeCLIAgent{bin: bin, timeout: timeout, logger: logger}
}

func (a *ClaudeCLIAgent) Name() string {
	return "claude-cli"
}

func (a *ClaudeCLIAgent) Generate(ctx context.Context, prompt string, maxTurns int) (string, error) {
	metrics.IncAgentRequest(a.Name())
	start := time.Now()
	defer func() { metrics.ObserveAgentDuration(a.Name(), time.Since(start)) }()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.bin,
		"-p",
		"--output-format", "stream-json",
		"--verbose",
		"--max-turns", strconv.Itoa(maxTurns),
	)
	cmd.Stdin = strings.NewReader(prompt)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		metrics.IncError("llm", "start_cli")
		return "", fmt.Errorf("start %s: %w", a.bin, err)
	}

	text, streamErr := a.collectText(stdout)
	// drain so the process is not blocked on a full pipe
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		metrics.IncError("llm", "timeout")
		return "", fmt.Errorf("agent canceled or timed out: %w", ctx.Err())
	}
	if waitErr != nil {
		metrics.IncError("llm", "exit")
		return "", fmt.Errorf("%s exited: %w: %s", a.bin, waitErr, strings.TrimSpace(stderr.String()))
	}
	if streamErr != nil {
		metrics.IncError("llm", "stream")
		return "", streamErr
	}
	return text, nil
}

// collectText concatenates every text block of assistant events in order.
// Other event and block types are ignored.
func (a *ClaudeCLIAgent) collectText(r io.Reader) (string, error) {
	var sb strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 || !gjson.ValidBytes(line) {
			continue
		}

		event := gjson.ParseBytes(line)
		eventType := event.Get("type").String()
		a.logger.Debug("agent event", "type", eventType)

		switch eventType {
		case "assistant":
			event.Get("message.content").ForEach(func(_, block gjson.Result) bool {
				if block.Get("type").String() == "text" {
					sb.WriteString(block.Get("text").String())
				}
				return true
			})
		case "result":
			if event.Get("is_error").Bool() {
				return "", fmt.Errorf("agent reported error (%s): %s",
					event.Get("subtype").String(), event.Get("result").String())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", fmt.Errorf("agent event exceeds %d bytes: %w", maxEventSize, err)
		}
		return "", fmt.Errorf("read agent output: %w", err)
	}
	return sb.String(), nil
}
