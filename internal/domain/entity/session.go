package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusPending       SessionStatus = "pending"
	SessionStatusGenerating    SessionStatus = "generating"
	SessionStatusMaterializing SessionStatus = "materializing"
	SessionStatusLocating      SessionStatus = "locating"
	SessionStatusDeploying     SessionStatus = "deploying"
	SessionStatusDeployed      SessionStatus = "deployed"
	SessionStatusFailed        SessionStatus = "failed"
)

// IsTerminal reports whether no further transitions will happen.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusDeployed || s == SessionStatusFailed
}

// CodeRequest is the payload accepted by the intake endpoint.
type CodeRequest struct {
	Prompt    string `json:"prompt"`
	UserEmail string `json:"user_email"`
}

type Session struct {
	ID           string        `json:"id"`
	Prompt       string        `json:"prompt"`
	Recipient    string        `json:"recipient"`
	Status       SessionStatus `json:"status"`
	Workspace    string        `json:"workspace,omitempty"`
	FilesWritten int           `json:"files_written"`
	DeployDir    string        `json:"deploy_dir,omitempty"`
	URL          string        `json:"url,omitempty"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewSessionID returns the first 8 hex characters of a random UUID.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func NewSession(req CodeRequest) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        NewSessionID(),
		Prompt:    req.Prompt,
		Recipient: req.UserEmail,
		Status:    SessionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WorkspaceName is the directory name used for the session's files.
func (s *Session) WorkspaceName() string {
	return "workspace_" + s.ID
}

func (s *Session) UpdateStatus(status SessionStatus) {
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
}

// Fail marks the session failed and records the error text.
func (s *Session) Fail(err error) {
	s.Error = err.Error()
	s.UpdateStatus(SessionStatusFailed)
}
