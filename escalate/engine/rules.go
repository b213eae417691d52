package engine

import (
	"fmt"
	"regexp"

	"github.com/triagelab/escalate/escalate/config"
)

// RuleMatch is the set of rule categories that fired on a turn. Produced
// fresh per turn; every matching category is reported so the explanation
// trace can name each triggering pattern, not just the first.
type RuleMatch struct {
	Fired []string
}

// Has reports whether the named category fired.
func (m RuleMatch) Has(name string) bool {
	for _, f := range m.Fired {
		if f == name {
			return true
		}
	}
	return false
}

// Override reports whether any unconditional-override category fired.
// Explicit human requests and risk terms encode hard safety/compliance
// requirements: when one matches, the conversation escalates regardless of
// model score, guard state, or thresholds.
func (m RuleMatch) Override() bool {
	return m.Has(config.RuleExplicitHumanRequest) || m.Has(config.RuleRiskTerms)
}

type ruleCategory struct {
	name     string
	enabled  bool
	botText  bool // matched against the previous bot message, not the user text
	patterns []*regexp.Regexp
}

// RuleEngine evaluates the deterministic pattern rules. Patterns are
// compiled once at construction, case-insensitive; evaluation order is the
// fixed canonical category order.
type RuleEngine struct {
	categories []ruleCategory
}

// NewRuleEngine compiles the configured rule categories. Unknown category
// names in the config are ignored; a pattern that fails to compile is a
// configuration error.
func NewRuleEngine(rules map[string]config.RuleCategory) (*RuleEngine, error) {
	re := &RuleEngine{}
	order := []struct {
		name    string
		botText bool
	}{
		{config.RuleExplicitHumanRequest, false},
		{config.RuleRiskTerms, false},
		{config.RuleBotUnhelpful, true},
	}

	for _, slot := range order {
		cat := ruleCategory{name: slot.name, botText: slot.botText}
		if cfg, ok := rules[slot.name]; ok {
			cat.enabled = cfg.Enabled
			for _, p := range cfg.Patterns {
				rx, err := regexp.Compile("(?i)" + p)
				if err != nil {
					return nil, fmt.Errorf("rule %s: compile %q: %w", slot.name, p, err)
				}
				cat.patterns = append(cat.patterns, rx)
			}
		}
		re.categories = append(re.categories, cat)
	}

	return re, nil
}

// Evaluate returns all categories that matched the turn.
func (re *RuleEngine) Evaluate(t Turn) RuleMatch {
	var match RuleMatch
	userText := t.UserText()
	botText := t.BotText()

	for _, cat := range re.categories {
		if !cat.enabled {
			continue
		}
		text := userText
		if cat.botText {
			text = botText
		}
		if matchAny(cat.patterns, text) {
			match.Fired = append(match.Fired, cat.name)
		}
	}

	return match
}

// MatchCategory evaluates a single named category against arbitrary text.
// The feature extractor uses this so the model sees exactly the same raw
// signal presence the rules do.
func (re *RuleEngine) MatchCategory(name, text string) bool {
	for _, cat := range re.categories {
		if cat.name != name {
			continue
		}
		if !cat.enabled {
			return false
		}
		return matchAny(cat.patterns, text)
	}
	return false
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, rx := range patterns {
		if rx.MatchString(s) {
			return true
		}
	}
	return false
}
