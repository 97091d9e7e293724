package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mshogin/flownodes/internal/domain/models"
)

// Node types.
const (
	NodeTypeWorkspaceManager = "watson-conversation-v1-workspace-manager"
	NodeTypeNLU              = "natural-language-understanding"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Services ServicesConfig `yaml:"services"`
	Staging  StagingConfig  `yaml:"staging"`
	Logging  LoggingConfig  `yaml:"logging"`
	Nodes    []NodeConfig   `yaml:"nodes"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ServicesConfig holds the remote endpoints the nodes talk to.
type ServicesConfig struct {
	Conversation ServiceConfig `yaml:"conversation"`
	NLU          ServiceConfig `yaml:"natural_language_understanding"`
}

// ServiceConfig contains remote service client settings.
type ServiceConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Version   string        `yaml:"version"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
}

// StagingConfig controls where binary payloads are materialized.
type StagingConfig struct {
	Dir    string `yaml:"dir"`
	Suffix string `yaml:"suffix"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// NodeConfig is the per-node configuration surface. It is read once per message.
type NodeConfig struct {
	ID          string             `yaml:"id" json:"id"`
	Type        string             `yaml:"type" json:"type"`
	Name        string             `yaml:"name" json:"name,omitempty"`
	Credentials models.Credentials `yaml:"credentials" json:"-"`
	// Password is the legacy location of the password, used when credentials carry none.
	Password string `yaml:"password" json:"-"`

	// Workspace manager settings.
	Mode          string `yaml:"mode" json:"mode,omitempty"`
	WorkspaceID   string `yaml:"workspace_id" json:"workspace_id,omitempty"`
	Intent        string `yaml:"intent" json:"intent,omitempty"`
	ExportContent bool   `yaml:"export_content" json:"export_content,omitempty"`
	PageLimit     int    `yaml:"page_limit" json:"page_limit,omitempty"`
	IncludeCount  bool   `yaml:"include_count" json:"include_count,omitempty"`
	Sort          string `yaml:"sort" json:"sort,omitempty"`

	// Feature extraction settings.
	Features    []string `yaml:"features" json:"features,omitempty"`
	MaxConcepts int      `yaml:"max_concepts" json:"max_concepts,omitempty"`
}

// FeatureEnabled reports whether the feature switch is turned on for the node.
func (n NodeConfig) FeatureEnabled(key string) bool {
	for _, f := range n.Features {
		if f == key {
			return true
		}
	}
	return false
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration after expanding environment variables.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	seen := make(map[string]bool, len(c.Nodes))
	for i, node := range c.Nodes {
		if node.ID == "" {
			return fmt.Errorf("node %d: id must be specified", i)
		}
		if seen[node.ID] {
			return fmt.Errorf("duplicate node id: %s", node.ID)
		}
		seen[node.ID] = true

		switch node.Type {
		case NodeTypeWorkspaceManager, NodeTypeNLU:
		default:
			return fmt.Errorf("node %s: unknown type %q", node.ID, node.Type)
		}
	}

	return nil
}

// Node returns the node configuration with the given id.
func (c *Config) Node(id string) (NodeConfig, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeConfig{}, false
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 1880
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	c.Services.Conversation.setDefaults(
		"https://gateway.watsonplatform.net/conversation/api", "2017-02-03")
	c.Services.NLU.setDefaults(
		"https://gateway.watsonplatform.net/natural-language-understanding/api", "2017-02-27")

	if c.Staging.Dir == "" {
		c.Staging.Dir = os.TempDir()
	}
	if c.Staging.Suffix == "" {
		c.Staging.Suffix = ".txt"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	for i := range c.Nodes {
		if c.Nodes[i].Type == NodeTypeNLU && c.Nodes[i].MaxConcepts == 0 {
			c.Nodes[i].MaxConcepts = models.DefaultMaxConcepts
		}
	}
}

func (s *ServiceConfig) setDefaults(baseURL, version string) {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.Version == "" {
		s.Version = version
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.RateLimit == 0 {
		s.RateLimit = 10
	}
	if s.RateBurst == 0 {
		s.RateBurst = 5
	}
}

// expandEnvVars replaces ${VAR} and $VAR with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}
