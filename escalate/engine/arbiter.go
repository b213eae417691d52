package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/triagelab/escalate/escalate/config"
	"github.com/triagelab/escalate/escalate/engine/adapters"
	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

// PolicyArbiter fuses the deterministic rules, the calibrated scorer, and the
// rolling conversation state into one verdict per turn. The pipeline is
// fixed: rule check, guard check, model score, threshold decide, state
// update, emit. Rule overrides win unconditionally; the guard and the
// two-threshold hysteresis only apply on the model path.
type PolicyArbiter struct {
	tauLow           float64
	tauHigh          float64
	minTurn          int
	repeatSimilarity float64
	cacheTTL         int
	policyVersion    string

	rules    *RuleEngine
	features *FeatureExtractor
	scorer   ports.Scorer
	store    ports.StateStore
	cache    ports.ScoreCache
	tracer   ports.Tracer
	audit    ports.AuditLog
	locks    *adapters.KeyedMutex
	logger   zerolog.Logger
}

// NewPolicyArbiter wires an arbiter from its collaborators. Cache, tracer,
// and audit may be nil; missing optional collaborators degrade to no-ops.
func NewPolicyArbiter(
	cfg *config.Config,
	rules *RuleEngine,
	scorer ports.Scorer,
	store ports.StateStore,
	cache ports.ScoreCache,
	tracer ports.Tracer,
	audit ports.AuditLog,
	logger zerolog.Logger,
) *PolicyArbiter {
	if tracer == nil {
		tracer = adapters.NewNoopTracer()
	}
	if audit == nil {
		audit = adapters.NewNoopAuditLog()
	}
	return &PolicyArbiter{
		tauLow:           cfg.Engine.TauLow,
		tauHigh:          cfg.Engine.TauHigh,
		minTurn:          cfg.Engine.MinTurnBeforeModel,
		repeatSimilarity: cfg.Engine.RepeatSimilarity,
		cacheTTL:         cfg.Engine.CacheTTLSeconds,
		policyVersion:    cfg.Version,
		rules:            rules,
		features:         NewFeatureExtractor(rules),
		scorer:           scorer,
		store:            store,
		cache:            cache,
		tracer:           tracer,
		audit:            audit,
		locks:            adapters.NewKeyedMutex(),
		logger:           logger,
	}
}

// Decide runs one turn through the decision pipeline and returns the verdict.
// The whole read-modify-write cycle for the conversation runs under a per-key
// lock, so concurrent turns on the same conversation serialize instead of
// losing counter updates. A scorer failure on the model path fails the turn
// (ErrScoringUnavailable); it never silently substitutes a default score.
func (a *PolicyArbiter) Decide(ctx context.Context, turn Turn) (Decision, error) {
	start := time.Now()

	turn, err := turn.Normalize()
	if err != nil {
		return Decision{}, err
	}

	ctx, finish := a.tracer.StartSpan(ctx, "decide", map[string]any{
		"conversation_id": turn.ConversationID,
		"turn_id":         turn.TurnID,
		"role":            turn.Role,
	})
	defer func() { finish(err) }()

	release := a.locks.Acquire(turn.ConversationID)
	defer release()

	state, degraded := a.loadState(ctx, turn.ConversationID)

	// RULE_CHECK: every decision evaluates the rules, override or not, so the
	// trace always names what fired.
	match := a.rules.Evaluate(turn)
	a.tracer.Event(ctx, "rule_check", map[string]any{"fired": match.Fired})

	var d Decision
	switch {
	case match.Override():
		d = a.decideByRules(turn, match)

	case state.UserTurnIdx < a.minTurn:
		// GUARD_CHECK: too little context for the model to be trusted.
		d = a.decideByGuard(turn, match, state)
		a.tracer.Event(ctx, "guard_check", map[string]any{
			"user_turn_idx": state.UserTurnIdx,
			"min_turn":      a.minTurn,
		})

	default:
		d, err = a.decideByModel(ctx, turn, match, state)
		if err != nil {
			return Decision{}, err
		}
	}

	// STATE_UPDATE: counters advance after the verdict; a degraded read skips
	// the write so a transient outage cannot clobber durable state.
	next := a.advanceState(turn, match, state, d)
	if !degraded {
		if perr := a.store.Put(ctx, turn.ConversationID, next); perr != nil {
			a.logger.Warn().Err(perr).
				Str("conversation_id", turn.ConversationID).
				Msg("state write failed; decision stands, counters lost")
			degraded = true
		}
	}

	d.StateDegraded = degraded
	d.ModelVersion = a.scorer.Version()
	d.PolicyVersion = a.policyVersion
	d.LatencyMS = time.Since(start).Milliseconds()
	d.State = StateSnapshot{
		UserTurnIdx:     next.UserTurnIdx,
		NoProgressCount: next.NoProgressCount,
		BotRepeatCount:  next.BotRepeatCount,
	}

	a.tracer.Event(ctx, "emit", map[string]any{
		"escalate": d.Escalate,
		"where":    d.Source,
		"reason":   d.Reason,
	})
	a.appendAudit(ctx, turn, d, next)

	return d, nil
}

// Reset clears a conversation's rolling state.
func (a *PolicyArbiter) Reset(ctx context.Context, conversationID string) error {
	release := a.locks.Acquire(conversationID)
	defer release()
	return a.store.Reset(ctx, conversationID)
}

// State returns the conversation's current rolling state without deciding a
// turn. Unknown conversations read as the zeroed state.
func (a *PolicyArbiter) State(ctx context.Context, conversationID string) (ports.ConversationState, error) {
	release := a.locks.Acquire(conversationID)
	defer release()
	return a.store.Get(ctx, conversationID)
}

// loadState fetches prior state, degrading to a zeroed state on backend
// failure rather than refusing the turn.
func (a *PolicyArbiter) loadState(ctx context.Context, conversationID string) (ports.ConversationState, bool) {
	state, err := a.store.Get(ctx, conversationID)
	if err != nil {
		a.logger.Warn().Err(err).
			Str("conversation_id", conversationID).
			Msg("state read failed; deciding on zeroed state")
		return ports.ConversationState{}, true
	}
	return state, false
}

func (a *PolicyArbiter) decideByRules(turn Turn, match RuleMatch) Decision {
	return Decision{
		ConversationID: turn.ConversationID,
		TurnID:         turn.TurnID,
		Escalate:       true,
		Source:         SourceRules,
		Score:          nil,
		Threshold:      a.tauHigh,
		FiredRules:     match.Fired,
		Reason:         "rule override: " + strings.Join(match.Fired, ", "),
	}
}

func (a *PolicyArbiter) decideByGuard(turn Turn, match RuleMatch, state ports.ConversationState) Decision {
	return Decision{
		ConversationID: turn.ConversationID,
		TurnID:         turn.TurnID,
		Escalate:       false,
		Source:         SourceGuard,
		Score:          nil,
		Threshold:      a.tauLow,
		FiredRules:     match.Fired,
		Reason: fmt.Sprintf("guarded: %d user turns seen, model requires %d",
			state.UserTurnIdx, a.minTurn),
	}
}

func (a *PolicyArbiter) decideByModel(ctx context.Context, turn Turn, match RuleMatch, state ports.ConversationState) (Decision, error) {
	vec := a.features.Extract(turn, state).Slice()

	p, err := a.scoreCached(ctx, vec)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	a.tracer.Event(ctx, "model_score", map[string]any{"score": p})

	d := Decision{
		ConversationID: turn.ConversationID,
		TurnID:         turn.TurnID,
		Source:         SourceModel,
		Score:          &p,
		FiredRules:     match.Fired,
	}

	switch {
	case p >= a.tauHigh:
		d.Escalate = true
		d.Threshold = a.tauHigh
		d.Reason = fmt.Sprintf("score %.3f at or above tau_high %.2f", p, a.tauHigh)
	case p < a.tauLow:
		d.Escalate = false
		d.Threshold = a.tauLow
		d.Reason = fmt.Sprintf("score %.3f below tau_low %.2f", p, a.tauLow)
	case state.StickyKnown:
		d.Escalate = state.StickyEscalate
		d.Threshold = a.tauHigh
		if !d.Escalate {
			d.Threshold = a.tauLow
		}
		d.Reason = fmt.Sprintf("score %.3f in [%.2f, %.2f): holding previous firm verdict",
			p, a.tauLow, a.tauHigh)
	default:
		// First ambiguous score of a conversation defaults to no-escalate.
		d.Escalate = false
		d.Threshold = a.tauLow
		d.Reason = fmt.Sprintf("score %.3f in [%.2f, %.2f): no prior verdict, defaulting to no-escalate",
			p, a.tauLow, a.tauHigh)
	}

	return d, nil
}

// scoreCached memoizes the scorer by serialized feature vector. Scoring is
// deterministic for a fixed artifact, so a hit is always exact.
func (a *PolicyArbiter) scoreCached(ctx context.Context, vec []float64) (float64, error) {
	if a.cache == nil {
		return a.scorer.Score(ctx, vec)
	}

	key := scoreCacheKey(a.scorer.Version(), vec)
	if p, ok := a.cache.Get(ctx, key); ok {
		return p, nil
	}

	p, err := a.scorer.Score(ctx, vec)
	if err != nil {
		return 0, err
	}

	if cerr := a.cache.Set(ctx, key, p, a.cacheTTL); cerr != nil {
		a.logger.Debug().Err(cerr).Msg("score cache write failed")
	}

	return p, nil
}

func scoreCacheKey(version string, vec []float64) string {
	var b strings.Builder
	b.WriteString(version)
	for _, f := range vec {
		fmt.Fprintf(&b, "|%g", f)
	}
	return b.String()
}

// advanceState derives the successor state from the verdict. Counters move
// by fixed steps:
//   - the user turn index counts completed user turns only;
//   - repeat and no-progress tracking fold in the turn's visible bot text
//     (the message on bot turns, prev_bot_text on user turns), so callers
//     that only submit user turns still drive both counters. A user turn
//     echoing the bot message a preceding bot-role turn already folded is
//     skipped, so each distinct bot message counts exactly once;
//   - no-progress rises while the bot keeps emitting unhelpful templates
//     without an escalation, and decays once it stops;
//   - bot-repeat rises on consecutive (near-)duplicate bot messages and
//     resets on a fresh one;
//   - the sticky verdict records firm outcomes only: rule overrides and
//     model decisions outside the ambiguous band. Guard decisions and
//     held-over ambiguous verdicts leave it untouched.
func (a *PolicyArbiter) advanceState(turn Turn, match RuleMatch, state ports.ConversationState, d Decision) ports.ConversationState {
	next := state

	if turn.Role == RoleUser {
		next.UserTurnIdx++
	}

	botText := normalizeBotText(turn.BotText())
	echoed := turn.Role == RoleUser && state.PrevFromBot &&
		botText != "" && botText == state.PrevBotText

	switch {
	case echoed:
		// Already folded by the bot-role turn that carried this message.
	case botText == "":
		// Nothing to compare; the unhelpful flag cannot be set either.
		next.NoProgressCount = math.Max(0, next.NoProgressCount-1)
	default:
		if state.PrevBotText != "" && a.isRepeat(botText, state.PrevBotText) {
			next.BotRepeatCount++
		} else {
			next.BotRepeatCount = 0
		}
		if match.Has(config.RuleBotUnhelpful) && !d.Escalate {
			next.NoProgressCount++
		} else {
			next.NoProgressCount = math.Max(0, next.NoProgressCount-1)
		}
		next.PrevBotText = botText
		next.PrevFromBot = turn.Role == RoleBot
	}

	if d.Source == SourceRules || (d.Source == SourceModel && firmVerdict(d, a.tauLow, a.tauHigh)) {
		next.StickyKnown = true
		next.StickyEscalate = d.Escalate
	}

	return next
}

func firmVerdict(d Decision, tauLow, tauHigh float64) bool {
	if d.Score == nil {
		return false
	}
	return *d.Score >= tauHigh || *d.Score < tauLow
}

// isRepeat compares a normalized bot message against the previous one. At
// similarity 1.0 only exact matches count; below that, token-set Jaccard
// similarity at or above the configured floor counts as a near-duplicate.
func (a *PolicyArbiter) isRepeat(norm, prev string) bool {
	if norm == prev {
		return true
	}
	if a.repeatSimilarity >= 1.0 {
		return false
	}
	return jaccard(norm, prev) >= a.repeatSimilarity
}

func jaccard(x, y string) float64 {
	xs := tokenSet(x)
	ys := tokenSet(y)
	if len(xs) == 0 || len(ys) == 0 {
		return 0
	}
	inter := 0
	for tok := range xs {
		if _, ok := ys[tok]; ok {
			inter++
		}
	}
	union := len(xs) + len(ys) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func normalizeBotText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// appendAudit writes the decision record best-effort; the turn's verdict is
// already final and an audit outage must not fail it. Texts are redacted
// before they leave the arbiter.
func (a *PolicyArbiter) appendAudit(ctx context.Context, turn Turn, d Decision, next ports.ConversationState) {
	rec := ports.DecisionRecord{
		ConversationID:  d.ConversationID,
		TurnID:          d.TurnID,
		Escalate:        d.Escalate,
		Source:          string(d.Source),
		Score:           d.Score,
		Threshold:       d.Threshold,
		FiredRules:      d.FiredRules,
		Reason:          d.Reason,
		RedactedUser:    Redact(turn.UserText()),
		RedactedBot:     Redact(turn.BotText()),
		ModelVersion:    d.ModelVersion,
		PolicyVersion:   d.PolicyVersion,
		StateDegraded:   d.StateDegraded,
		LatencyMS:       d.LatencyMS,
		UserTurnIdx:     next.UserTurnIdx,
		NoProgressCount: next.NoProgressCount,
		BotRepeatCount:  next.BotRepeatCount,
	}
	if err := a.audit.Append(ctx, rec); err != nil {
		a.logger.Warn().Err(err).
			Str("conversation_id", d.ConversationID).
			Msg("audit append failed")
	}
}
