package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"appforge/internal/domain/entity"
	"appforge/internal/domain/repository"
	"appforge/internal/infrastructure/metrics"
)

// GenerationService runs one background pipeline per accepted request:
// agent -> files -> locate -> deploy -> notify.
type GenerationService struct {
	sessions   repository.SessionRepository
	workspaces repository.WorkspaceRepository
	agent      repository.AgentGenerator
	deployer   Deployer
	notifier   repository.Notifier

	prompt   entity.Prompt
	maxTurns int

	logger *slog.Logger

	wg sync.WaitGroup
}

func NewGenerationService(
	sr repository.SessionRepository,
	wr repository.WorkspaceRepository,
	agent repository.AgentGenerator,
	deployer Deployer,
	notifier repository.Notifier,
	maxTurns int,
	logger *slog.Logger,
) *GenerationService {
	return &GenerationService{
		sessions:   sr,
		workspaces: wr,
		agent:      agent,
		deployer:   deployer,
		notifier:   notifier,
		prompt:     entity.WebAppPrompt,
		maxTurns:   maxTurns,
		logger:     logger,
	}
}

// Submit registers a session and starts its pipeline in the background. It
// returns as soon as the session is registered. The pipeline is detached from
// ctx cancellation: once accepted, a session runs to completion.
func (s *GenerationService) Submit(ctx context.Context, req entity.CodeRequest) (*entity.Session, error) {
	session, err := s.register(ctx, req)
	if err != nil {
		return nil, err
	}

	snapshot := *session
	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Run(runCtx, session)
	}()

	return &snapshot, nil
}

// Generate registers a session and runs it in the foreground.
func (s *GenerationService) Generate(ctx context.Context, req entity.CodeRequest) (*entity.Session, error) {
	session, err := s.register(ctx, req)
	if err != nil {
		return nil, err
	}
	runErr := s.Run(ctx, session)
	return session, runErr
}

// Wait blocks until every background session has finished.
func (s *GenerationService) Wait() {
	s.wg.Wait()
}

func (s *GenerationService) register(ctx context.Context, req entity.CodeRequest) (*entity.Session, error) {
	if strings.TrimSpace(req.UserEmail) == "" {
		return nil, entity.ErrRecipientRequired
	}
	session := entity.NewSession(req)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	metrics.IncSessionsStarted()
	return session, nil
}

// Run executes the pipeline for an already registered session. Any failure
// is turned into a failure notification; the error is returned only for
// callers running in the foreground.
func (s *GenerationService) Run(ctx context.Context, session *entity.Session) (err error) {
	start := time.Now()
	logger := s.logger.With("session_id", session.ID)
	logger.Info("starting generation session", "recipient", session.Recipient)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panicked: %v", r)
			metrics.IncError("orchestrator", "panic")
		}
		if err != nil {
			s.fail(ctx, logger, session, err)
			metrics.ObserveSessionFinished("failed", time.Since(start))
			return
		}
		metrics.ObserveSessionFinished("deployed", time.Since(start))
		logger.Info("session finished", "url", session.URL, "duration", time.Since(start))
	}()

	return s.process(ctx, logger, session)
}

func (s *GenerationService) process(ctx context.Context, logger *slog.Logger, session *entity.Session) error {
	// 1) workspace
	dir, err := s.workspaces.Create(ctx, session.WorkspaceName())
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	session.Workspace = dir
	logger.Info("workspace directory created", "dir", dir)

	// 2-3) agent
	s.transition(ctx, logger, session, entity.SessionStatusGenerating)
	output, err := s.agent.Generate(ctx, s.prompt.Render(session.Prompt), s.maxTurns)
	if err != nil {
		return fmt.Errorf("agent %s: %w", s.agent.Name(), err)
	}
	logger.Info("development phase finished", "agent", s.agent.Name(), "output_bytes", len(output))

	// 4) files
	s.transition(ctx, logger, session, entity.SessionStatusMaterializing)
	n, err := s.workspaces.Materialize(ctx, dir, output)
	if err != nil {
		return err
	}
	session.FilesWritten = n
	logger.Info("files created", "count", n)

	// 5) entry point
	s.transition(ctx, logger, session, entity.SessionStatusLocating)
	deployDir, ok, err := s.workspaces.Locate(ctx, dir)
	if err != nil {
		return fmt.Errorf("locate deployable app: %w", err)
	}
	if !ok {
		return entity.ErrNoDeployableArtifact
	}
	session.DeployDir = deployDir
	logger.Info("found deployable application", "dir", deployDir)

	// 6) deploy
	s.transition(ctx, logger, session, entity.SessionStatusDeploying)
	deployment, err := s.deployer.Deploy(ctx, deployDir)
	if err != nil {
		return err
	}
	session.URL = deployment.URL

	// 7) notify
	s.transition(ctx, logger, session, entity.SessionStatusDeployed)
	s.notifier.Notify(ctx, successNotification(session))
	return nil
}

func (s *GenerationService) fail(ctx context.Context, logger *slog.Logger, session *entity.Session, err error) {
	logger.Error("generation session failed", "status", session.Status, "err", err)
	from := session.Status
	session.Fail(err)
	metrics.IncSessionStatusChange(string(from), string(session.Status))
	s.save(ctx, logger, session)
	s.notifier.Notify(ctx, failureNotification(session, err))
}

func (s *GenerationService) transition(ctx context.Context, logger *slog.Logger, session *entity.Session, to entity.SessionStatus) {
	metrics.IncSessionStatusChange(string(session.Status), string(to))
	session.UpdateStatus(to)
	s.save(ctx, logger, session)
}

func (s *GenerationService) save(ctx context.Context, logger *slog.Logger, session *entity.Session) {
	if err := s.sessions.Update(ctx, session); err != nil {
		logger.Warn("failed to record session status", "status", session.Status, "err", err)
	}
}
