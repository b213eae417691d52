package engine

import (
	"unicode"

	"github.com/triagelab/escalate/escalate/config"
	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

// FeatureOrder is the canonical slot order of the feature vector. The loaded
// model artifact must declare exactly this order or fail at startup.
var FeatureOrder = []string{
	"turn_idx",
	"user_caps_ratio",
	"exclam_count",
	"msg_len",
	"bot_unhelpful",
	"user_requests_human",
	"risk_terms",
	"no_progress_count",
	"bot_repeat_count",
}

// FeatureVector is the fixed-schema numeric tuple fed to the scorer.
// Derived per turn, never persisted.
type FeatureVector struct {
	TurnIdx           float64
	UserCapsRatio     float64
	ExclamCount       float64
	MsgLen            float64
	BotUnhelpful      float64
	UserRequestsHuman float64
	RiskTerms         float64
	NoProgressCount   float64
	BotRepeatCount    float64
}

// Slice returns the vector in canonical FeatureOrder.
func (v FeatureVector) Slice() []float64 {
	return []float64{
		v.TurnIdx,
		v.UserCapsRatio,
		v.ExclamCount,
		v.MsgLen,
		v.BotUnhelpful,
		v.UserRequestsHuman,
		v.RiskTerms,
		v.NoProgressCount,
		v.BotRepeatCount,
	}
}

// FeatureExtractor converts a turn plus prior state into a feature vector.
// Pure: no side effects, no I/O, and it never mutates the incoming state;
// rolling counts are observed, not recomputed.
type FeatureExtractor struct {
	rules *RuleEngine
}

// NewFeatureExtractor builds an extractor sharing the rule engine's compiled
// patterns, keeping model features and rule matches in lock-step.
func NewFeatureExtractor(rules *RuleEngine) *FeatureExtractor {
	return &FeatureExtractor{rules: rules}
}

// Extract derives the feature vector for a turn given the prior state.
func (fe *FeatureExtractor) Extract(t Turn, st ports.ConversationState) FeatureVector {
	userText := t.UserText()
	botText := t.BotText()

	return FeatureVector{
		TurnIdx:           float64(st.UserTurnIdx),
		UserCapsRatio:     capsRatio(userText),
		ExclamCount:       float64(countRune(userText, '!')),
		MsgLen:            float64(len(userText)),
		BotUnhelpful:      boolFeature(fe.rules.MatchCategory(config.RuleBotUnhelpful, botText)),
		UserRequestsHuman: boolFeature(fe.rules.MatchCategory(config.RuleExplicitHumanRequest, userText)),
		RiskTerms:         boolFeature(fe.rules.MatchCategory(config.RuleRiskTerms, userText)),
		NoProgressCount:   st.NoProgressCount,
		BotRepeatCount:    st.BotRepeatCount,
	}
}

// capsRatio is uppercase letters over total letters, 0 when there are none.
func capsRatio(s string) float64 {
	var caps, letters int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				caps++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(caps) / float64(letters)
}

func countRune(s string, target rune) int {
	n := 0
	for _, r := range s {
		if r == target {
			n++
		}
	}
	return n
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
