package scoring

// Rule is one weighted scoring rule (spec §4.5). Weight is added to the
// running score whenever Cond evaluates true at a given bar index.
type Rule struct {
	Name        string
	Weight      float64
	Description string
	Cond        Cond
	Enabled     bool
}

// DefaultRules returns the rule library transcribed from the original
// scoring engine's default set, covering the indicator families moving
// averages, RSI, MACD, Bollinger Bands, volume, Ichimoku and OBV, with
// several rules per family.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "ma_crossover_bullish", Weight: 20.0, Enabled: true,
			Description: "MA short crosses above MA long",
			Cond: And(
				Gt(at(VarMAShort), at(VarMALong)),
				Lte(shift(VarMAShort, 1), shift(VarMALong, 1)),
			),
		},
		{
			Name: "ma_crossover_bearish", Weight: -20.0, Enabled: true,
			Description: "MA short crosses below MA long",
			Cond: And(
				Lt(at(VarMAShort), at(VarMALong)),
				Gte(shift(VarMAShort, 1), shift(VarMALong, 1)),
			),
		},
		{
			Name: "price_above_ma", Weight: 10.0, Enabled: true,
			Description: "Close above both MA short and MA long",
			Cond: And(Gt(at(VarClose), at(VarMAShort)), Gt(at(VarClose), at(VarMALong))),
		},
		{
			Name: "price_below_ma", Weight: -10.0, Enabled: true,
			Description: "Close below both MA short and MA long",
			Cond: And(Lt(at(VarClose), at(VarMAShort)), Lt(at(VarClose), at(VarMALong))),
		},
		{
			Name: "rsi_oversold", Weight: 15.0, Enabled: true,
			Description: "RSI crosses below oversold floor",
			Cond: And(LtConst(at(VarRSI), 30), GtConst(shift(VarRSI, 1), 30-1e-9)),
		},
		{
			Name: "rsi_overbought", Weight: -15.0, Enabled: true,
			Description: "RSI crosses above overbought ceiling",
			Cond: And(GtConst(at(VarRSI), 70), LtConst(shift(VarRSI, 1), 70+1e-9)),
		},
		{
			Name: "rsi_bullish_divergence", Weight: 25.0, Enabled: true,
			Description: "RSI rising while price falls",
			Cond: And(Gt(at(VarRSI), shift(VarRSI, 1)), Lt(at(VarClose), shift(VarClose, 1))),
		},
		{
			Name: "rsi_bearish_divergence", Weight: -25.0, Enabled: true,
			Description: "RSI falling while price rises",
			Cond: And(Lt(at(VarRSI), shift(VarRSI, 1)), Gt(at(VarClose), shift(VarClose, 1))),
		},
		{
			Name: "macd_bullish_crossover", Weight: 20.0, Enabled: true,
			Description: "MACD crosses above its signal line",
			Cond: And(
				Gt(at(VarMACD), at(VarMACDSignal)),
				Lte(shift(VarMACD, 1), shift(VarMACDSignal, 1)),
			),
		},
		{
			Name: "macd_bearish_crossover", Weight: -20.0, Enabled: true,
			Description: "MACD crosses below its signal line",
			Cond: And(
				Lt(at(VarMACD), at(VarMACDSignal)),
				Gte(shift(VarMACD, 1), shift(VarMACDSignal, 1)),
			),
		},
		{
			Name: "macd_histogram_increasing", Weight: 10.0, Enabled: true,
			Description: "MACD histogram rising two bars in a row",
			Cond: And(
				Gt(at(VarMACDHist), shift(VarMACDHist, 1)),
				Gt(shift(VarMACDHist, 1), shift(VarMACDHist, 2)),
			),
		},
		{
			Name: "macd_histogram_decreasing", Weight: -10.0, Enabled: true,
			Description: "MACD histogram falling two bars in a row",
			Cond: And(
				Lt(at(VarMACDHist), shift(VarMACDHist, 1)),
				Lt(shift(VarMACDHist, 1), shift(VarMACDHist, 2)),
			),
		},
		{
			Name: "bb_squeeze", Weight: 15.0, Enabled: true,
			Description: "Bollinger Band width compressing below its rolling average",
			Cond: LtRefScaled(at(VarBBWidth), at(VarBBWidthAvg), 0.8),
		},
		{
			Name: "bb_upper_breakout", Weight: 20.0, Enabled: true,
			Description: "Close breaks above the upper Bollinger Band",
			Cond: And(
				Gt(at(VarClose), at(VarBBUpper)),
				Lte(shift(VarClose, 1), shift(VarBBUpper, 1)),
			),
		},
		{
			Name: "bb_lower_breakout", Weight: -20.0, Enabled: true,
			Description: "Close breaks below the lower Bollinger Band",
			Cond: And(
				Lt(at(VarClose), at(VarBBLower)),
				Gte(shift(VarClose, 1), shift(VarBBLower, 1)),
			),
		},
		{
			Name: "volume_spike_bullish", Weight: 15.0, Enabled: true,
			Description: "Volume spike accompanied by a price rise",
			Cond: And(GtConst(at(VarVolumeSpike), 1.8), Gt(at(VarClose), shift(VarClose, 1))),
		},
		{
			Name: "volume_spike_bearish", Weight: -15.0, Enabled: true,
			Description: "Volume spike accompanied by a price drop",
			Cond: And(GtConst(at(VarVolumeSpike), 1.8), Lt(at(VarClose), shift(VarClose, 1))),
		},
		{
			Name: "ichimoku_bullish_cloud", Weight: 25.0, Enabled: true,
			Description: "Price above the cloud with Tenkan above Kijun",
			Cond: And(
				Gt(at(VarClose), at(VarSenkouA)),
				Gt(at(VarClose), at(VarSenkouB)),
				Gt(at(VarTenkan), at(VarKijun)),
			),
		},
		{
			Name: "ichimoku_bearish_cloud", Weight: -25.0, Enabled: true,
			Description: "Price below the cloud with Tenkan below Kijun",
			Cond: And(
				Lt(at(VarClose), at(VarSenkouA)),
				Lt(at(VarClose), at(VarSenkouB)),
				Lt(at(VarTenkan), at(VarKijun)),
			),
		},
		{
			Name: "obv_bullish_divergence", Weight: 20.0, Enabled: true,
			Description: "OBV above its average while price has fallen over 5 bars",
			Cond: And(Gt(at(VarOBV), at(VarOBVMA)), Lt(at(VarClose), shift(VarClose, 5))),
		},
		{
			Name: "obv_bearish_divergence", Weight: -20.0, Enabled: true,
			Description: "OBV below its average while price has risen over 5 bars",
			Cond: And(Lt(at(VarOBV), at(VarOBVMA)), Gt(at(VarClose), shift(VarClose, 5))),
		},
	}
}
