package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"appforge/app/config"
	"appforge/app/usecase"
	"appforge/internal/domain/entity"
	"appforge/internal/domain/repository"
	"appforge/internal/infrastructure/llm"
	"appforge/internal/infrastructure/notifier"
	"appforge/internal/infrastructure/process"
	"appforge/internal/infrastructure/store/filesystem"
	"appforge/internal/infrastructure/store/memory"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "appforge",
		Short:         "Generate a web app from a prompt, deploy it locally and mail the link",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to an HCL config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))
	return cmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// app is the wired object graph shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	generator *usecase.GenerationService
	service   *usecase.SessionService
}

func buildApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log.Level)

	workspaces, err := filesystem.NewFileRepository(cfg.Workspace.BaseDir, entity.PathPolicy(cfg.Workspace.PathPolicy), logger)
	if err != nil {
		return nil, fmt.Errorf("init workspace repository: %w", err)
	}
	sessions := memory.NewSessionRepo()

	var agent repository.AgentGenerator
	switch cfg.Agent.Backend {
	case config.AgentBackendChatCompletions:
		agent = llm.NewChatCompletionAgent(cfg.Agent.APIKey, cfg.Agent.BaseURL, cfg.Agent.Model,
			cfg.Agent.MaxTokens, cfg.Agent.Timeout, logger)
	default:
		agent = llm.NewClaudeCLIAgent(cfg.Agent.ClaudeBin, cfg.Agent.Timeout, logger)
	}

	deployer := usecase.NewLocalProcessDeployer(
		process.NewController(logger),
		cfg.Deploy.Port,
		cfg.Deploy.PublicHost,
		cfg.Deploy.PythonBin,
		cfg.Deploy.SettleDelay,
		logger,
	)

	mailer := notifier.NewSMTPNotifier(cfg.Mail, logger)
	if !cfg.Mail.Complete() {
		logger.Warn("SMTP settings are incomplete, notifications will be skipped")
	}

	generator := usecase.NewGenerationService(sessions, workspaces, agent, deployer, mailer, cfg.Agent.MaxTurns, logger)

	logger.Info("appforge initialised",
		"agent", agent.Name(),
		"workspace_dir", workspaces.GetBasePath(),
		"deploy_url", deployer.URL(),
		"path_policy", cfg.Workspace.PathPolicy)

	return &app{
		cfg:       cfg,
		logger:    logger,
		generator: generator,
		service:   usecase.NewSessionService(generator, sessions),
	}, nil
}
