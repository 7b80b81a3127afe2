package repository

import "context"

// AgentGenerator drives a code-generation agent and returns the text it
// produced, concatenated in emission order.
type AgentGenerator interface {
	Generate(ctx context.Context, prompt string, maxTurns int) (string, error)
	Name() string
}
