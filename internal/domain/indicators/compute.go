package indicators

import (
	"fmt"
	"math"

	"github.com/hoangnph/vnquant/internal/domain"
)

// Validate rejects frames missing required columns (always present once a
// Frame was built from bars) or whose length is less than the longest
// lookback the config requires (spec §4.4 "Validation").
func Validate(f *Frame, cfg domain.IndicatorConfig) error {
	if f == nil || f.Len() == 0 {
		return fmt.Errorf("indicators: empty frame")
	}
	required := cfg.IchimokuSenkouB
	if cfg.MALong > required {
		required = cfg.MALong
	}
	if cfg.BBPeriod > required {
		required = cfg.BBPeriod
	}
	if f.Len() < required {
		return fmt.Errorf("indicators: frame length %d below required %d", f.Len(), required)
	}
	return nil
}

// Compute derives every indicator column described in spec §4.4 and returns
// a new Frame (the input is read-only). It is a pure function: identical
// input always yields identical output.
func Compute(f *Frame, cfg domain.IndicatorConfig) (*Frame, error) {
	if err := Validate(f, cfg); err != nil {
		return nil, err
	}
	n := f.Len()
	out := &Frame{
		Symbol: f.Symbol, Time: f.Time, Open: f.Open, High: f.High, Low: f.Low,
		Close: f.Close, Volume: f.Volume,
	}

	out.MAShort = sma(f.Close, cfg.MAShort)
	out.MAMedium = sma(f.Close, cfg.MAMedium)
	out.MALong = sma(f.Close, cfg.MALong)

	out.RSI = rsi(f.Close, cfg.RSIPeriod)

	emaFast := ema(f.Close, cfg.MACDFast)
	emaSlow := ema(f.Close, cfg.MACDSlow)
	macdLine := make([]float64, n)
	macdValid := make([]bool, n)
	for i := 0; i < n; i++ {
		fv, fok := at(emaFast, i)
		sv, sok := at(emaSlow, i)
		if fok && sok {
			macdLine[i] = fv - sv
			macdValid[i] = true
		}
	}
	out.MACD = maskedCopy(macdLine, macdValid)
	macdSignalRaw := emaOverMasked(macdLine, macdValid, cfg.MACDSignal)
	out.MACDSignal = macdSignalRaw
	out.MACDHist = make([]*float64, n)
	for i := 0; i < n; i++ {
		mv, mok := at(out.MACD, i)
		sv, sok := at(out.MACDSignal, i)
		if mok && sok {
			h := mv - sv
			out.MACDHist[i] = &h
		}
	}

	bbUpper, bbLower, bbWidth := bollinger(f.Close, cfg.BBPeriod, cfg.BBStd)
	out.BBUpper, out.BBLower, out.BBWidth = bbUpper, bbLower, bbWidth
	out.BBWidthAvg = smaMasked(out.BBWidth, cfg.SqueezeLookback)

	volF := make([]float64, n)
	for i, v := range f.Volume {
		volF[i] = float64(v)
	}
	out.VolAvg = sma(volF, cfg.VolumeAvgPeriod)
	out.VolumeSpike = make([]*float64, n)
	for i := 0; i < n; i++ {
		avg, ok := at(out.VolAvg, i)
		if ok && avg != 0 {
			spike := volF[i] / avg
			out.VolumeSpike[i] = &spike
		}
	}

	out.Tenkan = midpoint(f.High, f.Low, cfg.IchimokuTenkan)
	out.Kijun = midpoint(f.High, f.Low, cfg.IchimokuKijun)
	senkouARaw := make([]*float64, n)
	for i := 0; i < n; i++ {
		t, tok := at(out.Tenkan, i)
		k, kok := at(out.Kijun, i)
		if tok && kok {
			v := (t + k) / 2
			senkouARaw[i] = &v
		}
	}
	out.SenkouA = shiftForward(senkouARaw, cfg.IchimokuKijun)
	senkouBRaw := midpoint(f.High, f.Low, cfg.IchimokuSenkouB)
	out.SenkouB = shiftForward(senkouBRaw, cfg.IchimokuKijun)

	out.OBV = obv(f.Close, f.Volume)
	out.OBVMA = sma(out.OBV, cfg.MAMedium)

	return out, nil
}

// sma computes the simple moving average over period, nil until the window
// fills.
func sma(x []float64, period int) []*float64 {
	n := len(x)
	out := make([]*float64, n)
	if period <= 0 {
		return out
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += x[i]
		if i >= period {
			sum -= x[i-period]
		}
		if i >= period-1 {
			v := sum / float64(period)
			out[i] = &v
		}
	}
	return out
}

// ema computes the exponential moving average using the standard
// alpha = 2/(span+1) recursion, seeded at the first observed value (spec
// §4.4 "standard no-bias adjustment" — i.e. the plain recursive EMA, not a
// weighted-average bias correction). Defined from index 0 onward.
func ema(x []float64, span int) []*float64 {
	n := len(x)
	out := make([]*float64, n)
	if n == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	prev := x[0]
	v0 := prev
	out[0] = &v0
	for i := 1; i < n; i++ {
		prev = alpha*x[i] + (1-alpha)*prev
		v := prev
		out[i] = &v
	}
	return out
}

// emaOverMasked computes an EMA over a column that itself starts nil until
// `valid` turns true (e.g. the MACD line, which needs the slow EMA to have
// filled first).
func emaOverMasked(x []float64, valid []bool, span int) []*float64 {
	n := len(x)
	out := make([]*float64, n)
	if span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	var prev float64
	started := false
	for i := 0; i < n; i++ {
		if !valid[i] {
			continue
		}
		if !started {
			prev = x[i]
			started = true
		} else {
			prev = alpha*x[i] + (1-alpha)*prev
		}
		v := prev
		out[i] = &v
	}
	return out
}

// smaMasked computes a simple moving average over a nullable column,
// emitting a value only once `period` consecutive entries are all
// non-nil (used for the bb_width-of-bb_width squeeze average, whose
// input itself starts nil until the Bollinger window fills).
func smaMasked(x []*float64, period int) []*float64 {
	n := len(x)
	out := make([]*float64, n)
	if period <= 0 {
		return out
	}
	var sum float64
	run := 0
	for i := 0; i < n; i++ {
		v, ok := at(x, i)
		if !ok {
			sum, run = 0, 0
			continue
		}
		sum += v
		run++
		if run > period {
			old, _ := at(x, i-period)
			sum -= old
			run = period
		}
		if run >= period {
			avg := sum / float64(period)
			out[i] = &avg
		}
	}
	return out
}

func maskedCopy(x []float64, valid []bool) []*float64 {
	out := make([]*float64, len(x))
	for i := range x {
		if valid[i] {
			v := x[i]
			out[i] = &v
		}
	}
	return out
}

// rsi computes spec §4.4's Wilder-like RSI: 100 - 100/(1+gain/loss) where
// gain/loss are SMAs of the P positive/negative closes-diffs (not a
// recursive Wilder smoothing — the rolling-window form the original
// implementation uses).
func rsi(close []float64, period int) []*float64 {
	n := len(close)
	out := make([]*float64, n)
	if n < 2 || period <= 0 {
		return out
	}
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := sma(gains, period)
	avgLoss := sma(losses, period)
	for i := 0; i < n; i++ {
		g, gok := at(avgGain, i)
		l, lok := at(avgLoss, i)
		if !gok || !lok || i < period {
			continue
		}
		var v float64
		if l == 0 {
			v = 100
		} else {
			rs := g / l
			v = 100 - (100 / (1 + rs))
		}
		val := v
		out[i] = &val
	}
	return out
}

// bollinger computes the SMA +/- k*stddev bands and width, per spec §4.4.
func bollinger(close []float64, period int, k float64) (upper, lower, width []*float64) {
	n := len(close)
	upper = make([]*float64, n)
	lower = make([]*float64, n)
	width = make([]*float64, n)
	mid := sma(close, period)
	for i := 0; i < n; i++ {
		m, ok := at(mid, i)
		if !ok {
			continue
		}
		start := i - period + 1
		var sumSq float64
		for j := start; j <= i; j++ {
			d := close[j] - m
			sumSq += d * d
		}
		// Sample standard deviation (ddof=1), matching the original's
		// pandas .std() rather than a population stddev — original_source's
		// indicator_engine.py is ground truth for this formula.
		dof := period - 1
		if dof <= 0 {
			dof = 1
		}
		std := math.Sqrt(sumSq / float64(dof))
		u := m + k*std
		l := m - k*std
		upper[i] = &u
		lower[i] = &l
		if m != 0 {
			w := (u - l) / m
			width[i] = &w
		}
	}
	return
}

// midpoint computes the rolling (max(high)+min(low))/2 over period, used
// for Ichimoku's Tenkan/Kijun/Senkou-B lines.
func midpoint(high, low []float64, period int) []*float64 {
	n := len(high)
	out := make([]*float64, n)
	if period <= 0 {
		return out
	}
	for i := period - 1; i < n; i++ {
		hi := high[i]
		lo := low[i]
		for j := i - period + 1; j <= i; j++ {
			if high[j] > hi {
				hi = high[j]
			}
			if low[j] < lo {
				lo = low[j]
			}
		}
		v := (hi + lo) / 2
		out[i] = &v
	}
	return out
}

// shiftForward shifts a column forward by k positions (value at i becomes
// visible at i+k), matching the pandas .shift(k) semantics the Ichimoku
// leading spans use. Positions before k have no value.
func shiftForward(x []*float64, k int) []*float64 {
	n := len(x)
	out := make([]*float64, n)
	for i := 0; i < n; i++ {
		src := i - k
		if src >= 0 {
			out[i] = x[src]
		}
	}
	return out
}

// obv computes the running sum of sign(delta close) * volume.
func obv(close []float64, volume []int64) []float64 {
	n := len(close)
	out := make([]float64, n)
	var running float64
	for i := 0; i < n; i++ {
		if i > 0 {
			switch {
			case close[i] > close[i-1]:
				running += float64(volume[i])
			case close[i] < close[i-1]:
				running -= float64(volume[i])
			}
		}
		out[i] = running
	}
	return out
}
