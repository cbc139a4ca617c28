package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangnph/vnquant/internal/domain"
	"github.com/hoangnph/vnquant/internal/domain/indicators"
)

func frameWithMAAndMACD(t *testing.T, close, maLong, macd, macdSignal float64) *indicators.Frame {
	t.Helper()
	bars := []domain.Bar{
		{Symbol: "X", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: close, High: close, Low: close, Close: close, Volume: 100},
	}
	f, err := indicators.NewFrame(bars)
	require.NoError(t, err)

	maLongVal := maLong
	macdVal := macd
	macdSignalVal := macdSignal
	f.MALong = []*float64{&maLongVal}
	f.MACD = []*float64{&macdVal}
	f.MACDSignal = []*float64{&macdSignalVal}
	return f
}

// TestEngine_ScenarioD_ScoringAndMapping replicates spec §8 scenario D with
// exactly two active rules: w=+30 if close>ma_long, w=+60 if
// macd>signal_line.
func TestEngine_ScenarioD_ScoringAndMapping(t *testing.T) {
	f := frameWithMAAndMACD(t, 100, 90, 5, 2) // close>ma_long, macd>signal

	closeGtMALong := Rule{Name: "close_gt_ma_long", Weight: 30, Enabled: true, Cond: Gt(at(VarClose), at(VarMALong))}
	macdGtSignal := Rule{Name: "macd_gt_signal", Weight: 60, Enabled: true, Cond: Gt(at(VarMACD), at(VarMACDSignal))}

	cfg := DefaultConfig()
	cfg.MinScoreThreshold = 10

	engine := &Engine{Rules: []Rule{closeGtMALong, macdGtSignal}, Config: cfg}
	score, fired := engine.Calculate(f, 0)
	require.Len(t, fired, 2)
	assert.Equal(t, 90.0, score)

	action, strength, adjusted := engine.GenerateSignal(score, TrendUnknown)
	assert.Equal(t, ActionSell, action)
	assert.Equal(t, StrengthVeryStrong, strength)
	assert.Equal(t, 90.0, adjusted)

	// Disabling the second rule: score=30 -> action=SELL, strength=MEDIUM.
	macdGtSignal.Enabled = false
	engine2 := &Engine{Rules: []Rule{closeGtMALong, macdGtSignal}, Config: cfg}
	score2, _ := engine2.Calculate(f, 0)
	assert.Equal(t, 30.0, score2)
	action2, strength2, _ := engine2.GenerateSignal(score2, TrendUnknown)
	assert.Equal(t, ActionSell, action2)
	assert.Equal(t, StrengthMedium, strength2)

	// Disabling both: no signal since score is below min threshold.
	closeGtMALong.Enabled = false
	engine3 := &Engine{Rules: []Rule{closeGtMALong, macdGtSignal}, Config: cfg}
	score3, fired3 := engine3.Calculate(f, 0)
	assert.Equal(t, 0.0, score3)
	assert.Empty(t, fired3)
	assert.Less(t, score3, cfg.MinScoreThreshold)
}

// TestEngine_ScoreLinearity verifies spec §8 invariant 5: toggling one rule
// off changes the total by exactly that rule's weight.
func TestEngine_ScoreLinearity(t *testing.T) {
	f := frameWithMAAndMACD(t, 100, 90, 5, 2)

	r1 := Rule{Name: "r1", Weight: 17.5, Enabled: true, Cond: Gt(at(VarClose), at(VarMALong))}
	r2 := Rule{Name: "r2", Weight: -42.0, Enabled: true, Cond: Gt(at(VarMACD), at(VarMACDSignal))}

	full := &Engine{Rules: []Rule{r1, r2}, Config: DefaultConfig()}
	scoreFull, _ := full.Calculate(f, 0)

	r2Off := r2
	r2Off.Enabled = false
	partial := &Engine{Rules: []Rule{r1, r2Off}, Config: DefaultConfig()}
	scorePartial, _ := partial.Calculate(f, 0)

	assert.Equal(t, r2.Weight, scoreFull-scorePartial)
}

func TestEngine_UnknownLagOrMissingColumnNeverFires(t *testing.T) {
	// A rule referencing shift(k) beyond the start of the series must be
	// treated as "not triggered", not an error (spec §4.5 step 1).
	f := frameWithMAAndMACD(t, 100, 90, 5, 2)
	r := Rule{Name: "needs_lag", Weight: 100, Enabled: true, Cond: Gt(at(VarClose), shift(VarClose, 5))}
	engine := &Engine{Rules: []Rule{r}, Config: DefaultConfig()}
	score, fired := engine.Calculate(f, 0)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, fired)
}

func TestEngine_DisabledRuleNeverFires(t *testing.T) {
	f := frameWithMAAndMACD(t, 100, 90, 5, 2)
	r := Rule{Name: "r", Weight: 100, Enabled: false, Cond: Gt(at(VarClose), at(VarMALong))}
	engine := &Engine{Rules: []Rule{r}, Config: DefaultConfig()}
	score, fired := engine.Calculate(f, 0)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, fired)
}

func TestContextMultiplier_UptrendBuyAmplifies(t *testing.T) {
	cfg := DefaultConfig()
	f := frameWithMAAndMACD(t, 100, 200, -80, 0) // deep buy score

	r := Rule{Name: "buy_rule", Weight: -40, Enabled: true, Cond: Lt(at(VarClose), at(VarMALong))}
	engine := &Engine{Rules: []Rule{r}, Config: cfg}
	score, _ := engine.Calculate(f, 0)
	require.Equal(t, -40.0, score)

	_, _, adjustedUp := engine.GenerateSignal(score, TrendUp)
	_, _, adjustedDown := engine.GenerateSignal(score, TrendDown)
	assert.Equal(t, score*cfg.MultiplierUptrendBuy, adjustedUp)
	assert.Equal(t, score*cfg.MultiplierDowntrendBuy, adjustedDown)
	assert.Less(t, adjustedUp, adjustedDown, "an uptrend must amplify a buy signal relative to a downtrend")
}
