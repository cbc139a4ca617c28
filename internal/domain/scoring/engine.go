package scoring

import "github.com/hoangnph/vnquant/internal/domain/indicators"

// Action is the trading direction a signal recommends.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

// Strength buckets the magnitude of an (adjusted) score.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
	StrengthVeryStrong
)

// Trend is the regime a symbol is in at scoring time, used to pick a
// context multiplier (spec §9: model regimes as a sum type, not strings).
type Trend int

const (
	TrendUnknown Trend = iota
	TrendUp
	TrendDown
	TrendSideways
)

// Config holds the score-to-signal thresholds and context multipliers
// (spec §4.5's "Scoring config").
type Config struct {
	StrongThreshold float64
	MediumThreshold float64
	WeakThreshold   float64

	BuyStrongThreshold  float64
	BuyMediumThreshold  float64
	SellMediumThreshold float64
	SellStrongThreshold float64

	MinScoreThreshold float64

	// MultiplierUptrendBuy etc. mirror the original engine's
	// context_multipliers map, keyed by (Trend, Action) instead of a
	// string so an invalid combination cannot be expressed.
	MultiplierUptrendBuy    float64
	MultiplierUptrendSell   float64
	MultiplierDowntrendBuy  float64
	MultiplierDowntrendSell float64
	MultiplierSideways      float64
}

// DefaultConfig returns the thresholds and multipliers from spec §4.5.
func DefaultConfig() Config {
	return Config{
		StrongThreshold: 75, MediumThreshold: 25, WeakThreshold: 10,
		BuyStrongThreshold: -75, BuyMediumThreshold: -25,
		SellMediumThreshold: 25, SellStrongThreshold: 75,
		MinScoreThreshold:       10,
		MultiplierUptrendBuy:    1.5,
		MultiplierUptrendSell:   0.5,
		MultiplierDowntrendBuy:  0.5,
		MultiplierDowntrendSell: 1.5,
		MultiplierSideways:      0.7,
	}
}

// contextMultiplier resolves the multiplier for a trend/action pair, or
// 1.0 (neutral) when no specific combination applies — mirrors the
// original engine falling back to a multiplier of 1.0 for unlisted
// contexts.
func (c Config) contextMultiplier(trend Trend, action Action) float64 {
	switch {
	case trend == TrendUp && action == ActionBuy:
		return c.MultiplierUptrendBuy
	case trend == TrendUp && action == ActionSell:
		return c.MultiplierUptrendSell
	case trend == TrendDown && action == ActionBuy:
		return c.MultiplierDowntrendBuy
	case trend == TrendDown && action == ActionSell:
		return c.MultiplierDowntrendSell
	case trend == TrendSideways:
		return c.MultiplierSideways
	default:
		return 1.0
	}
}

// RuleResult records one rule that fired at a bar.
type RuleResult struct {
	Name        string
	Description string
	Weight      float64
}

// Engine evaluates a rule set over a frame.
type Engine struct {
	Rules  []Rule
	Config Config
}

// NewEngine builds an engine with the default rule library and config.
func NewEngine() *Engine {
	return &Engine{Rules: DefaultRules(), Config: DefaultConfig()}
}

// Calculate sums the weight of every enabled rule that fires at bar
// index i, returning the raw score and the triggered rules (spec §4.5
// step 1-2). A rule whose condition references a column that hasn't
// filled yet never fires (treated as "not triggered", not an error).
func (e *Engine) Calculate(f *indicators.Frame, i int) (float64, []RuleResult) {
	if i < 0 || i >= f.Len() {
		return 0, nil
	}
	var score float64
	var fired []RuleResult
	for _, r := range e.Rules {
		if !r.Enabled {
			continue
		}
		ok, known := r.Cond.eval(f, i)
		if !known || !ok {
			continue
		}
		score += r.Weight
		fired = append(fired, RuleResult{Name: r.Name, Description: r.Description, Weight: r.Weight})
	}
	return score, fired
}

// GenerateSignal maps a raw score, adjusted by a trend-aware context
// multiplier, onto an action and strength band (spec §4.5 step 3).
// The buy/sell direction used to pick the multiplier is taken from the
// unadjusted score's sign before the multiplier is resolved, matching
// the original engine's two-pass "score then adjust" flow.
func (e *Engine) GenerateSignal(score float64, trend Trend) (Action, Strength, float64) {
	hint := ActionHold
	switch {
	case score < 0:
		hint = ActionBuy
	case score > 0:
		hint = ActionSell
	}
	adjusted := score * e.Config.contextMultiplier(trend, hint)

	c := e.Config
	switch {
	case adjusted <= c.BuyStrongThreshold:
		return ActionBuy, StrengthVeryStrong, adjusted
	case adjusted <= c.BuyMediumThreshold:
		return ActionBuy, StrengthMedium, adjusted
	case adjusted >= c.SellStrongThreshold:
		return ActionSell, StrengthVeryStrong, adjusted
	case adjusted >= c.SellMediumThreshold:
		return ActionSell, StrengthMedium, adjusted
	default:
		return ActionHold, StrengthWeak, adjusted
	}
}
