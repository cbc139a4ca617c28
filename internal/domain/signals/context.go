// Package signals combines a computed indicator frame with the scoring
// engine to produce tagged trading signals (spec §4.6). Context fields
// are closed enumerations rather than strings so a caller can switch
// exhaustively over them (spec §9 design note).
package signals

import (
	"github.com/hoangnph/vnquant/internal/domain/indicators"
	"github.com/hoangnph/vnquant/internal/domain/scoring"
)

type Volatility int

const (
	VolatilityUnknown Volatility = iota
	VolatilityLow
	VolatilityMedium
	VolatilityHigh
)

type VolumeLevel int

const (
	VolumeUnknown VolumeLevel = iota
	VolumeLow
	VolumeNormal
	VolumeHigh
	VolumeVeryHigh
)

type RSIZone int

const (
	RSIZoneUnknown RSIZone = iota
	RSIZoneOversold
	RSIZoneNeutral
	RSIZoneOverbought
)

type IchimokuState int

const (
	IchimokuUnknown IchimokuState = iota
	IchimokuBullish
	IchimokuBearish
	IchimokuNeutral
)

type PricePosition int

const (
	PricePositionUnknown PricePosition = iota
	PricePositionStrongAboveAll
	PricePositionAboveKeyMAs
	PricePositionStrongBelowAll
	PricePositionBelowKeyMAs
	PricePositionMixed
)

// MarketContext is the descriptive tagging attached to a signal (spec
// §4.6). Its Trend selects the scoring engine's context multiplier for
// the signal's score; the other fields are metadata for downstream
// consumers (backtesting, reporting) to filter or explain on.
type MarketContext struct {
	Trend         scoring.Trend
	Volatility    Volatility
	Volume        VolumeLevel
	RSIZone       RSIZone
	Ichimoku      IchimokuState
	PricePosition PricePosition
}

func at(c []*float64, i int) (float64, bool) {
	if i < 0 || i >= len(c) || c[i] == nil {
		return 0, false
	}
	return *c[i], true
}

// determineContext derives every context field independently; a field
// whose required columns haven't filled yet is left at its Unknown
// zero value (spec §4.6 "tag only what's computable at this bar").
func determineContext(f *indicators.Frame, i int) MarketContext {
	var ctx MarketContext

	if short, ok1 := at(f.MAShort, i); ok1 {
		if long, ok2 := at(f.MALong, i); ok2 {
			switch {
			case short > long:
				ctx.Trend = scoring.TrendUp
			case short < long:
				ctx.Trend = scoring.TrendDown
			default:
				ctx.Trend = scoring.TrendSideways
			}
		}
	}

	if w, ok := at(f.BBWidth, i); ok {
		switch {
		case w > 0.1:
			ctx.Volatility = VolatilityHigh
		case w < 0.05:
			ctx.Volatility = VolatilityLow
		default:
			ctx.Volatility = VolatilityMedium
		}
	}

	if spike, ok := at(f.VolumeSpike, i); ok {
		switch {
		case spike > 2.0:
			ctx.Volume = VolumeVeryHigh
		case spike > 1.5:
			ctx.Volume = VolumeHigh
		case spike < 0.5:
			ctx.Volume = VolumeLow
		default:
			ctx.Volume = VolumeNormal
		}
	}

	if rsi, ok := at(f.RSI, i); ok {
		switch {
		case rsi > 70:
			ctx.RSIZone = RSIZoneOverbought
		case rsi < 30:
			ctx.RSIZone = RSIZoneOversold
		default:
			ctx.RSIZone = RSIZoneNeutral
		}
	}

	tenkan, okT := at(f.Tenkan, i)
	kijun, okK := at(f.Kijun, i)
	senkouA, okA := at(f.SenkouA, i)
	senkouB, okB := at(f.SenkouB, i)
	if okT && okK && okA && okB {
		close := f.Close[i]
		cloudTop, cloudBottom := senkouA, senkouB
		if cloudBottom > cloudTop {
			cloudTop, cloudBottom = cloudBottom, cloudTop
		}
		switch {
		case tenkan > kijun && close > cloudTop:
			ctx.Ichimoku = IchimokuBullish
		case tenkan < kijun && close < cloudBottom:
			ctx.Ichimoku = IchimokuBearish
		default:
			ctx.Ichimoku = IchimokuNeutral
		}
	}

	maShort, ok1 := at(f.MAShort, i)
	maMedium, ok2 := at(f.MAMedium, i)
	maLong, ok3 := at(f.MALong, i)
	if ok1 && ok2 && ok3 {
		close := f.Close[i]
		switch {
		case close > maShort && maShort > maMedium && maMedium > maLong:
			ctx.PricePosition = PricePositionStrongAboveAll
		case close > maShort && close > maLong:
			ctx.PricePosition = PricePositionAboveKeyMAs
		case close < maShort && maShort < maMedium && maMedium < maLong:
			ctx.PricePosition = PricePositionStrongBelowAll
		case close < maShort && close < maLong:
			ctx.PricePosition = PricePositionBelowKeyMAs
		default:
			ctx.PricePosition = PricePositionMixed
		}
	}

	return ctx
}
