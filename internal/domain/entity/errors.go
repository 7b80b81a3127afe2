package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoFilesGenerated     = errors.New("AI did not generate code in the expected format. No files were created.")
	ErrNoDeployableArtifact = errors.New("AI agent failed to generate a deployable 'main.py', 'app.py' or 'index.html' file anywhere in the workspace.")
	ErrPathEscapesWorkspace = errors.New("generated file path escapes the session workspace")
	ErrRecipientRequired    = errors.New("user_email is required for notification.")
	ErrSessionNotFound      = errors.New("session not found")
)

// DependencyInstallError is returned when installing the generated app's
// requirements exits non-zero.
type DependencyInstallError struct {
	Manifest string
	Stderr   string
	Err      error
}

func (e *DependencyInstallError) Error() string {
	msg := fmt.Sprintf("install dependencies from %s: %v", e.Manifest, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *DependencyInstallError) Unwrap() error {
	return e.Err
}
