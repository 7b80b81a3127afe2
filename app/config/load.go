package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

func Default() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateBurst:    5,
		},
		Agent: AgentConfig{
			Backend:   AgentBackendClaudeCLI,
			ClaudeBin: "claude",
			MaxTurns:  5,
			BaseURL:   "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4o",
			MaxTokens: 16000,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Deploy: DeployConfig{
			Port:        8001,
			PublicHost:  "localhost",
			PythonBin:   "python",
			SettleDelay: time.Second,
		},
		Workspace: WorkspaceConfig{
			BaseDir:    ".",
			PathPolicy: "warn",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional HCL file and the
// process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Agent.Backend {
	case AgentBackendClaudeCLI:
	case AgentBackendChatCompletions:
		if c.Agent.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for agent backend %q", c.Agent.Backend)
		}
	default:
		return fmt.Errorf("unknown agent backend %q", c.Agent.Backend)
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent max_turns must be positive, got %d", c.Agent.MaxTurns)
	}
	if c.Deploy.Port <= 0 || c.Deploy.Port > 65535 {
		return fmt.Errorf("invalid deploy port %d", c.Deploy.Port)
	}
	if c.Workspace.PathPolicy != "warn" && c.Workspace.PathPolicy != "reject" {
		return fmt.Errorf("invalid path policy %q", c.Workspace.PathPolicy)
	}
	return nil
}

type fileConfig struct {
	Server    *serverBlock    `hcl:"server,block"`
	Agent     *agentBlock     `hcl:"agent,block"`
	Mail      *mailBlock      `hcl:"mail,block"`
	Deploy    *deployBlock    `hcl:"deploy,block"`
	Workspace *workspaceBlock `hcl:"workspace,block"`
	Log       *logBlock       `hcl:"log,block"`
}

type serverBlock struct {
	Host         string  `hcl:"host,optional"`
	Port         int     `hcl:"port,optional"`
	ReadTimeout  string  `hcl:"read_timeout,optional"`
	WriteTimeout string  `hcl:"write_timeout,optional"`
	MetricsAddr  string  `hcl:"metrics_addr,optional"`
	RateLimit    float64 `hcl:"rate_limit,optional"`
	RateBurst    int     `hcl:"rate_burst,optional"`
}

type agentBlock struct {
	Backend   string `hcl:"backend,optional"`
	ClaudeBin string `hcl:"claude_bin,optional"`
	MaxTurns  int    `hcl:"max_turns,optional"`
	Timeout   string `hcl:"timeout,optional"`
	APIKey    string `hcl:"api_key,optional"`
	BaseURL   string `hcl:"base_url,optional"`
	Model     string `hcl:"model,optional"`
	MaxTokens int    `hcl:"max_tokens,optional"`
}

type mailBlock struct {
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Username string `hcl:"username,optional"`
	Password string `hcl:"password,optional"`
	Sender   string `hcl:"sender,optional"`
}

type deployBlock struct {
	Port        int    `hcl:"port,optional"`
	PublicHost  string `hcl:"public_host,optional"`
	PythonBin   string `hcl:"python_bin,optional"`
	SettleDelay string `hcl:"settle_delay,optional"`
}

type workspaceBlock struct {
	BaseDir    string `hcl:"base_dir,optional"`
	PathPolicy string `hcl:"path_policy,optional"`
}

type logBlock struct {
	Level string `hcl:"level,optional"`
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	if b := fc.Server; b != nil {
		setString(&c.Server.Host, b.Host)
		setInt(&c.Server.Port, b.Port)
		if err := setDuration(&c.Server.ReadTimeout, b.ReadTimeout); err != nil {
			return fmt.Errorf("server.read_timeout: %w", err)
		}
		if err := setDuration(&c.Server.WriteTimeout, b.WriteTimeout); err != nil {
			return fmt.Errorf("server.write_timeout: %w", err)
		}
		setString(&c.Server.MetricsAddr, b.MetricsAddr)
		if b.RateLimit != 0 {
			c.Server.RateLimit = b.RateLimit
		}
		setInt(&c.Server.RateBurst, b.RateBurst)
	}
	if b := fc.Agent; b != nil {
		setString(&c.Agent.Backend, b.Backend)
		setString(&c.Agent.ClaudeBin, b.ClaudeBin)
		setInt(&c.Agent.MaxTurns, b.MaxTurns)
		if err := setDuration(&c.Agent.Timeout, b.Timeout); err != nil {
			return fmt.Errorf("agent.timeout: %w", err)
		}
		setString(&c.Agent.APIKey, b.APIKey)
		setString(&c.Agent.BaseURL, b.BaseURL)
		setString(&c.Agent.Model, b.Model)
		setInt(&c.Agent.MaxTokens, b.MaxTokens)
	}
	if b := fc.Mail; b != nil {
		setString(&c.Mail.Host, b.Host)
		setInt(&c.Mail.Port, b.Port)
		setString(&c.Mail.Username, b.Username)
		setString(&c.Mail.Password, b.Password)
		setString(&c.Mail.Sender, b.Sender)
	}
	if b := fc.Deploy; b != nil {
		setInt(&c.Deploy.Port, b.Port)
		setString(&c.Deploy.PublicHost, b.PublicHost)
		setString(&c.Deploy.PythonBin, b.PythonBin)
		if err := setDuration(&c.Deploy.SettleDelay, b.SettleDelay); err != nil {
			return fmt.Errorf("deploy.settle_delay: %w", err)
		}
	}
	if b := fc.Workspace; b != nil {
		setString(&c.Workspace.BaseDir, b.BaseDir)
		setString(&c.Workspace.PathPolicy, b.PathPolicy)
	}
	if b := fc.Log; b != nil {
		setString(&c.Log.Level, b.Level)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	dur := func(dst *time.Duration, key string) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		if err := setDuration(dst, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}

	str(&c.Server.Host, "SERVER_HOST")
	str(&c.Server.MetricsAddr, "METRICS_ADDR")
	str(&c.Agent.Backend, "AGENT_BACKEND")
	str(&c.Agent.ClaudeBin, "CLAUDE_BIN")
	str(&c.Agent.APIKey, "LLM_API_KEY")
	str(&c.Agent.BaseURL, "LLM_BASE_URL")
	str(&c.Agent.Model, "LLM_MODEL")
	str(&c.Mail.Host, "SMTP_SERVER")
	str(&c.Mail.Username, "SMTP_USERNAME")
	str(&c.Mail.Password, "SMTP_PASSWORD")
	str(&c.Mail.Sender, "SENDER_EMAIL")
	str(&c.Deploy.PublicHost, "DEPLOY_HOST")
	str(&c.Deploy.PythonBin, "PYTHON_BIN")
	str(&c.Workspace.BaseDir, "WORKSPACE_DIR")
	str(&c.Workspace.PathPolicy, "PATH_POLICY")
	str(&c.Log.Level, "LOG_LEVEL")

	for key, dst := range map[string]*int{
		"SERVER_PORT":     &c.Server.Port,
		"RATE_BURST":      &c.Server.RateBurst,
		"AGENT_MAX_TURNS": &c.Agent.MaxTurns,
		"LLM_MAX_TOKENS":  &c.Agent.MaxTokens,
		"SMTP_PORT":       &c.Mail.Port,
		"DEPLOY_PORT":     &c.Deploy.Port,
	} {
		if err := num(dst, key); err != nil {
			return err
		}
	}

	if v, ok := lookup("RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.Server.RateLimit = f
	}

	if err := dur(&c.Agent.Timeout, "AGENT_TIMEOUT"); err != nil {
		return err
	}
	return dur(&c.Deploy.SettleDelay, "DEPLOY_SETTLE_DELAY")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
