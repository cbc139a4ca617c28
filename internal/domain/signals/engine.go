package signals

import (
	"time"

	"github.com/hoangnph/vnquant/internal/domain/indicators"
	"github.com/hoangnph/vnquant/internal/domain/scoring"
)

// TradingSignal is one emitted signal (spec §3 "Signal").
type TradingSignal struct {
	Symbol         string
	Time           time.Time
	Action         scoring.Action
	Strength       scoring.Strength
	Score          float64
	TriggeredRules []scoring.RuleResult
	Context        MarketContext
}

// Engine derives signals from an already-computed indicator frame (spec
// §4.6). It holds no state of its own beyond the scoring engine it wraps.
type Engine struct {
	Scoring *scoring.Engine
}

// NewEngine builds a signal engine backed by the default scoring rules.
func NewEngine() *Engine {
	return &Engine{Scoring: scoring.NewEngine()}
}

// Generate evaluates every bar in f and emits a signal wherever the raw
// score's magnitude reaches minScoreThreshold (spec §4.6 step "only emit
// when |score| >= threshold"). The threshold is checked against the raw
// score; the emitted signal's action, strength and score then come from
// the scoring engine's GenerateSignal with the bar's context trend, which
// applies the trend multiplier.
func (e *Engine) Generate(f *indicators.Frame, symbol string, minScoreThreshold float64) []TradingSignal {
	if f.Len() == 0 {
		return nil
	}
	var out []TradingSignal
	for i := 0; i < f.Len(); i++ {
		score, fired := e.Scoring.Calculate(f, i)
		if score < 0 {
			if -score < minScoreThreshold {
				continue
			}
		} else if score < minScoreThreshold {
			continue
		}
		ctx := determineContext(f, i)
		action, strength, adjusted := e.Scoring.GenerateSignal(score, ctx.Trend)
		out = append(out, TradingSignal{
			Symbol:         symbol,
			Time:           f.Time[i],
			Action:         action,
			Strength:       strength,
			Score:          adjusted,
			TriggeredRules: fired,
			Context:        ctx,
		})
	}
	return out
}
