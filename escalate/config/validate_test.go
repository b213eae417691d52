package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Version: "policy@test",
		Engine: EngineConfig{
			TauLow:             0.45,
			TauHigh:            0.70,
			MinTurnBeforeModel: 1,
			RepeatSimilarity:   1.0,
		},
		State: StateConfig{Backend: "memory"},
		Rules: map[string]RuleCategory{
			RuleExplicitHumanRequest: {Enabled: true, Patterns: []string{`\bhuman\b`}},
			RuleRiskTerms:            {Enabled: true, Patterns: []string{"kyc"}},
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(validTestConfig()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing version",
			mutate: func(c *Config) { c.Version = "" },
			errMsg: "schema validation errors",
		},
		{
			name:   "tau_high above one",
			mutate: func(c *Config) { c.Engine.TauHigh = 1.5 },
			errMsg: "schema validation errors",
		},
		{
			name:   "negative guard turn",
			mutate: func(c *Config) { c.Engine.MinTurnBeforeModel = -1 },
			errMsg: "schema validation errors",
		},
		{
			name:   "unknown state backend",
			mutate: func(c *Config) { c.State.Backend = "postgres" },
			errMsg: "schema validation errors",
		},
		{
			name: "inverted thresholds",
			mutate: func(c *Config) {
				c.Engine.TauLow = 0.8
				c.Engine.TauHigh = 0.5
			},
			errMsg: "must not exceed",
		},
		{
			name: "unparseable rule pattern",
			mutate: func(c *Config) {
				c.Rules[RuleRiskTerms] = RuleCategory{Enabled: true, Patterns: []string{"[unclosed"}}
			},
			errMsg: "unparseable pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateEqualThresholds(t *testing.T) {
	// tau_low == tau_high collapses the ambiguous band to nothing; still legal.
	cfg := validTestConfig()
	cfg.Engine.TauLow = 0.6
	cfg.Engine.TauHigh = 0.6
	assert.NoError(t, Validate(cfg))
}
