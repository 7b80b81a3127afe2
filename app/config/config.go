package config

import "time"

type Config struct {
	Server    HTTPServerConfig `json:"server"`
	Agent     AgentConfig      `json:"agent"`
	Mail      MailConfig       `json:"mail"`
	Deploy    DeployConfig     `json:"deploy"`
	Workspace WorkspaceConfig  `json:"workspace"`
	Log       LogConfig        `json:"log"`
}

type HTTPServerConfig struct {
	Host         string        `json:"host" default:"0.0.0.0"`
	Port         int           `json:"port" default:"8000"`
	ReadTimeout  time.Duration `json:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `json:"write_timeout" default:"30s"`
	MetricsAddr  string        `json:"metrics_addr"`
	RateLimit    float64       `json:"rate_limit"`
	RateBurst    int           `json:"rate_burst" default:"5"`
}

const (
	AgentBackendClaudeCLI       = "claude-cli"
	AgentBackendChatCompletions = "chat-completions"
)

type AgentConfig struct {
	Backend   string        `json:"backend" default:"claude-cli"`
	ClaudeBin string        `json:"claude_bin" default:"claude"`
	MaxTurns  int           `json:"max_turns" default:"5"`
	Timeout   time.Duration `json:"timeout"`
	APIKey    string        `json:"api_key"`
	BaseURL   string        `json:"base_url" default:"https://api.openai.com/v1/chat/completions"`
	Model     string        `json:"model" default:"gpt-4o"`
	MaxTokens int           `json:"max_tokens" default:"16000"`
}

// MailConfig holds the SMTP relay settings. Every field must be set for
// notifications to be delivered.
type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port" default:"587"`
	Username string `json:"username"`
	Password string `json:"password"`
	Sender   string `json:"sender"`
}

func (m MailConfig) Complete() bool {
	return m.Host != "" && m.Port > 0 && m.Username != "" && m.Password != "" && m.Sender != ""
}

type DeployConfig struct {
	Port        int           `json:"port" default:"8001"`
	PublicHost  string        `json:"public_host" default:"localhost"`
	PythonBin   string        `json:"python_bin" default:"python"`
	SettleDelay time.Duration `json:"settle_delay" default:"1s"`
}

type WorkspaceConfig struct {
	BaseDir    string `json:"base_dir" default:"."`
	PathPolicy string `json:"path_policy" default:"warn"`
}

type LogConfig struct {
	Level string `json:"level" default:"info"`
}
