package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// policySchema constrains the shape of the loaded policy document. Semantic
// checks that a schema cannot express (threshold ordering, pattern
// compilability) happen in Validate after the schema pass.
const policySchema = `{
	"type": "object",
	"required": ["version", "engine", "rules"],
	"properties": {
		"version": {"type": "string", "minLength": 1},
		"engine": {
			"type": "object",
			"required": ["tau_low", "tau_high", "min_turn_before_model"],
			"properties": {
				"tau_low": {"type": "number", "minimum": 0, "maximum": 1},
				"tau_high": {"type": "number", "minimum": 0, "maximum": 1},
				"min_turn_before_model": {"type": "integer", "minimum": 0},
				"repeat_similarity": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
			}
		},
		"state": {
			"type": "object",
			"properties": {
				"backend": {"type": "string", "enum": ["memory", "libsql"]}
			}
		},
		"rules": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["enabled", "patterns"],
				"properties": {
					"enabled": {"type": "boolean"},
					"patterns": {"type": "array", "items": {"type": "string", "minLength": 1}}
				}
			}
		}
	}
}`

// Validate checks a loaded config against the policy schema and then applies
// semantic checks. Any failure here is a ConfigurationError in the engine's
// contract: fatal at startup.
func Validate(cfg *Config) error {
	schemaLoader := gojsonschema.NewStringLoader(policySchema)
	documentLoader := gojsonschema.NewGoLoader(cfg)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, verr := range result.Errors() {
			errs = append(errs, verr.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(errs, "; "))
	}

	if cfg.Engine.TauLow > cfg.Engine.TauHigh {
		return fmt.Errorf("tau_low %.3f must not exceed tau_high %.3f", cfg.Engine.TauLow, cfg.Engine.TauHigh)
	}

	for name, cat := range cfg.Rules {
		for _, p := range cat.Patterns {
			if _, err := regexp.Compile("(?i)" + p); err != nil {
				return fmt.Errorf("rule %s: unparseable pattern %q: %w", name, p, err)
			}
		}
	}

	return nil
}
