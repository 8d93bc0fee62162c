// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once at
// process start and passed by reference; no component reads the environment
// directly.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Apollo ApolloConfig `yaml:"apollo" mapstructure:"apollo"`
	Clay   ClayConfig   `yaml:"clay" mapstructure:"clay"`
	Apify  ApifyConfig  `yaml:"apify" mapstructure:"apify"`
	LLM    LLMConfig    `yaml:"llm" mapstructure:"llm"`
	ICP    ICPConfig    `yaml:"icp" mapstructure:"icp"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Skills SkillsConfig `yaml:"skills" mapstructure:"skills"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ApolloConfig holds Apollo API settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	PerPage int    `yaml:"per_page" mapstructure:"per_page"`
}

// ClayConfig holds Clay webhook settings.
type ClayConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Key        string `yaml:"key" mapstructure:"key"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ApifyConfig holds Apify actor settings for the LinkedIn scrape source.
type ApifyConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	ActorID string `yaml:"actor_id" mapstructure:"actor_id"`
}

// LLMConfig holds Anthropic API settings for query parsing.
type LLMConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ICPConfig configures where named ICP filter documents are loaded from.
type ICPConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ExportConfig configures output artifact generation.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// SkillsConfig configures the skill loader and script executor.
type SkillsConfig struct {
	Dir               string `yaml:"dir" mapstructure:"dir"`
	ScriptTimeoutSecs int    `yaml:"script_timeout_secs" mapstructure:"script_timeout_secs"`
	PythonPath        string `yaml:"python_path" mapstructure:"python_path"`
}

// ServerConfig configures the callback webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/leads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("apollo.base_url", "https://api.apollo.io/v1")
	v.SetDefault("apollo.per_page", 25)
	v.SetDefault("clay.batch_size", 10)
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("icp.dir", "icp_configs")
	v.SetDefault("export.dir", "output")
	v.SetDefault("skills.dir", "skills")
	v.SetDefault("skills.script_timeout_secs", 60)
	v.SetDefault("skills.python_path", "python3")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
