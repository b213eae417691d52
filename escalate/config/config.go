package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/triagelab/escalate/escalate"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Version string                  `mapstructure:"version" json:"version"`
	Engine  EngineConfig            `mapstructure:"engine" json:"engine"`
	Model   ModelConfig             `mapstructure:"model" json:"model"`
	State   StateConfig             `mapstructure:"state" json:"state"`
	Audit   AuditConfig             `mapstructure:"audit" json:"audit"`
	Logging LoggingConfig           `mapstructure:"logging" json:"logging"`
	Rules   map[string]RuleCategory `mapstructure:"rules" json:"rules"`
}

// EngineConfig stores arbiter thresholds, guards, and adapter toggles.
type EngineConfig struct {
	TauLow             float64 `mapstructure:"tau_low" json:"tau_low"`   // below: firm no-escalate
	TauHigh            float64 `mapstructure:"tau_high" json:"tau_high"` // at or above: firm escalate
	MinTurnBeforeModel int     `mapstructure:"min_turn_before_model" json:"min_turn_before_model"`
	// RepeatSimilarity controls bot-repeat detection: 1.0 means exact match on
	// normalized text, anything lower enables token-set Jaccard matching.
	RepeatSimilarity float64 `mapstructure:"repeat_similarity" json:"repeat_similarity"`

	// Score cache (memoizes the deterministic scorer)
	CacheEnabled    bool `mapstructure:"cache_enabled" json:"cache_enabled"`
	CacheCapacity   int  `mapstructure:"cache_capacity" json:"cache_capacity"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing" json:"enable_tracing"`
}

// RuleCategory is one independently-enabled pattern rule.
type RuleCategory struct {
	Enabled  bool     `mapstructure:"enabled" json:"enabled"`
	Patterns []string `mapstructure:"patterns" json:"patterns"`
}

// ModelConfig stores scorer artifact configuration.
type ModelConfig struct {
	ArtifactPath string `mapstructure:"artifact_path" json:"artifact_path"`
}

// StateConfig stores conversation-state backend configuration.
type StateConfig struct {
	Backend      string `mapstructure:"backend" json:"backend"` // "memory" or "libsql"
	DatabasePath string `mapstructure:"database_path" json:"database_path"`
	TTLSeconds   int    `mapstructure:"ttl_seconds" json:"ttl_seconds"`
}

// AuditConfig stores decision audit log configuration.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// LoggingConfig stores logger configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

// Rule category names. The arbiter evaluates them in this order.
const (
	RuleExplicitHumanRequest = "explicit_human_request"
	RuleRiskTerms            = "risk_terms"
	RuleBotUnhelpful         = "bot_unhelpful_templates"
)

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
// The loaded config is validated before being returned; a validation failure
// is fatal to the caller by contract (configuration errors are never
// recovered mid-flight).
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("policy")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("version", "policy@dev")

	// Engine defaults: hysteresis band around the original single threshold,
	// one user turn of context before the model is trusted.
	viper.SetDefault("engine.tau_low", 0.45)
	viper.SetDefault("engine.tau_high", 0.70)
	viper.SetDefault("engine.min_turn_before_model", 1)
	viper.SetDefault("engine.repeat_similarity", 1.0)
	viper.SetDefault("engine.cache_enabled", false)
	viper.SetDefault("engine.cache_capacity", 1000)
	viper.SetDefault("engine.cache_ttl_seconds", 300)
	viper.SetDefault("engine.enable_tracing", true)

	viper.SetDefault("model.artifact_path", internal.DefaultArtifactPath)

	viper.SetDefault("state.backend", "memory")
	viper.SetDefault("state.database_path", internal.DefaultDatabaseDSN)
	viper.SetDefault("state.ttl_seconds", internal.DefaultStateTTL)

	viper.SetDefault("audit.enabled", false)

	viper.SetDefault("logging.level", "info")

	// Rule defaults mirror the shipped policy snapshot.
	viper.SetDefault("rules.explicit_human_request.enabled", true)
	viper.SetDefault("rules.explicit_human_request.patterns", []string{
		`\b(human|agent|real person|talk to (?:a )?human|speak to (?:a )?human|customer service|support agent)\b`,
	})
	viper.SetDefault("rules.risk_terms.enabled", true)
	viper.SetDefault("rules.risk_terms.patterns", []string{
		"kyc", "blocked", "chargeback", "legal", "id verification",
	})
	viper.SetDefault("rules.bot_unhelpful_templates.enabled", true)
	viper.SetDefault("rules.bot_unhelpful_templates.patterns", []string{
		"could you provide more details",
		"we could not find the information",
		"check your spam folder",
		"ensure your documents are clear and valid",
	})

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults carry a complete working policy.
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := Validate(&AppConfig); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &AppConfig, nil
}
