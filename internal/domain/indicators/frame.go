// Package indicators is the pure technical-indicator calculation engine:
// given an ascending OHLCV frame it derives moving averages, RSI, MACD,
// Bollinger Bands, Ichimoku lines, volume statistics and OBV. It never
// mutates its input and is deterministic — two calls with identical input
// produce byte-identical output (spec §4.4, invariant 4).
package indicators

import (
	"fmt"
	"time"

	"github.com/hoangnph/vnquant/internal/domain"
)

// Frame is an OHLCV series indexed by time, ascending, plus every derived
// column the engine computes. Values that require a window longer than the
// available history are left as nil (spec §4.4: "emit null until the window
// has enough samples").
type Frame struct {
	Symbol []string
	Time   []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []int64

	MAShort  []*float64
	MAMedium []*float64
	MALong   []*float64

	RSI []*float64

	MACD       []*float64
	MACDSignal []*float64
	MACDHist   []*float64

	BBUpper    []*float64
	BBLower    []*float64
	BBWidth    []*float64
	BBWidthAvg []*float64

	VolAvg       []*float64
	VolumeSpike  []*float64

	Tenkan   []*float64
	Kijun    []*float64
	SenkouA  []*float64
	SenkouB  []*float64

	OBV   []float64
	OBVMA []*float64
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Time) }

// NewFrame builds a Frame from ascending bars of a single symbol. It does
// not compute derived columns; call Compute for that.
func NewFrame(bars []domain.Bar) (*Frame, error) {
	f := &Frame{
		Symbol: make([]string, len(bars)),
		Time:   make([]time.Time, len(bars)),
		Open:   make([]float64, len(bars)),
		High:   make([]float64, len(bars)),
		Low:    make([]float64, len(bars)),
		Close:  make([]float64, len(bars)),
		Volume: make([]int64, len(bars)),
	}
	for i, b := range bars {
		if i > 0 && b.Time.Before(f.Time[i-1]) {
			return nil, fmt.Errorf("indicators: bars not ascending at index %d", i)
		}
		f.Symbol[i] = b.Symbol
		f.Time[i] = b.Time
		f.Open[i] = b.Open
		f.High[i] = b.High
		f.Low[i] = b.Low
		f.Close[i] = b.Close
		f.Volume[i] = b.Volume
	}
	return f, nil
}

// At returns the value of a *float64 column at index i, or (0, false) if
// the window hadn't filled yet.
func at(col []*float64, i int) (float64, bool) {
	if i < 0 || i >= len(col) || col[i] == nil {
		return 0, false
	}
	return *col[i], true
}
