// Package scoring evaluates a configurable, weighted rule set over a
// computed indicator frame and maps the resulting score onto a trading
// signal (spec §4.5). Rule conditions are a closed tagged-variant
// expression tree over a fixed variable alphabet (spec §6, §9 design
// note) rather than arbitrary evaluated code, so a rule set can never
// reference anything outside the indicator surface the engine computes.
package scoring

import "github.com/hoangnph/vnquant/internal/domain/indicators"

// Var names one column of the indicator frame a condition may reference.
type Var int

const (
	VarClose Var = iota
	VarOpen
	VarHigh
	VarLow
	VarVolume
	VarMAShort
	VarMAMedium
	VarMALong
	VarRSI
	VarMACD
	VarMACDSignal
	VarMACDHist
	VarBBUpper
	VarBBLower
	VarBBWidth
	VarBBWidthAvg
	VarVolumeSpike
	VarTenkan
	VarKijun
	VarSenkouA
	VarSenkouB
	VarOBV
	VarOBVMA
)

// Ref is a reference to a variable, optionally looking k bars back
// (spec §6's ".shift(k)" lagged references, k in {1,2,5}).
type Ref struct {
	Var   Var
	Shift int
}

func at(v Var) Ref { return Ref{Var: v} }

func shift(v Var, k int) Ref { return Ref{Var: v, Shift: k} }

// value resolves a Ref against the frame at index i. ok is false if the
// column hasn't filled yet at that index or the shift runs off the start
// of the series.
func value(f *indicators.Frame, r Ref, i int) (float64, bool) {
	idx := i - r.Shift
	if idx < 0 || idx >= f.Len() {
		return 0, false
	}
	switch r.Var {
	case VarClose:
		return f.Close[idx], true
	case VarOpen:
		return f.Open[idx], true
	case VarHigh:
		return f.High[idx], true
	case VarLow:
		return f.Low[idx], true
	case VarVolume:
		return float64(f.Volume[idx]), true
	case VarMAShort:
		return col(f.MAShort, idx)
	case VarMAMedium:
		return col(f.MAMedium, idx)
	case VarMALong:
		return col(f.MALong, idx)
	case VarRSI:
		return col(f.RSI, idx)
	case VarMACD:
		return col(f.MACD, idx)
	case VarMACDSignal:
		return col(f.MACDSignal, idx)
	case VarMACDHist:
		return col(f.MACDHist, idx)
	case VarBBUpper:
		return col(f.BBUpper, idx)
	case VarBBLower:
		return col(f.BBLower, idx)
	case VarBBWidth:
		return col(f.BBWidth, idx)
	case VarBBWidthAvg:
		return col(f.BBWidthAvg, idx)
	case VarVolumeSpike:
		return col(f.VolumeSpike, idx)
	case VarTenkan:
		return col(f.Tenkan, idx)
	case VarKijun:
		return col(f.Kijun, idx)
	case VarSenkouA:
		return col(f.SenkouA, idx)
	case VarSenkouB:
		return col(f.SenkouB, idx)
	case VarOBV:
		return f.OBV[idx], true
	case VarOBVMA:
		return col(f.OBVMA, idx)
	default:
		return 0, false
	}
}

func col(c []*float64, i int) (float64, bool) {
	if i < 0 || i >= len(c) || c[i] == nil {
		return 0, false
	}
	return *c[i], true
}

// Cond is a condition node. Every rule's trigger test is built from these;
// there is no generic expression-string fallback.
type Cond interface {
	eval(f *indicators.Frame, i int) (bool, bool)
}

type and []Cond

func (c and) eval(f *indicators.Frame, i int) (bool, bool) {
	for _, sub := range c {
		ok, known := sub.eval(f, i)
		if !known {
			return false, false
		}
		if !ok {
			return false, true
		}
	}
	return true, true
}

// And combines conditions; all must hold and be defined.
func And(conds ...Cond) Cond { return and(conds) }

type cmp struct {
	a, b Ref
	op   func(a, b float64) bool
}

func (c cmp) eval(f *indicators.Frame, i int) (bool, bool) {
	av, aok := value(f, c.a, i)
	bv, bok := value(f, c.b, i)
	if !aok || !bok {
		return false, false
	}
	return c.op(av, bv), true
}

func Gt(a, b Ref) Cond  { return cmp{a, b, func(x, y float64) bool { return x > y }} }
func Lt(a, b Ref) Cond  { return cmp{a, b, func(x, y float64) bool { return x < y }} }
func Gte(a, b Ref) Cond { return cmp{a, b, func(x, y float64) bool { return x >= y }} }
func Lte(a, b Ref) Cond { return cmp{a, b, func(x, y float64) bool { return x <= y }} }

// constCmp compares a Ref, multiplied by scale, against a literal
// threshold. GtConst and LtConst always use a scale of 1.
type constCmp struct {
	a     Ref
	scale float64
	k     float64
	op    func(a, b float64) bool
}

func (c constCmp) eval(f *indicators.Frame, i int) (bool, bool) {
	av, aok := value(f, c.a, i)
	if !aok {
		return false, false
	}
	return c.op(av, c.k*c.scale), true
}

func GtConst(a Ref, k float64) Cond { return constCmp{a, 1, k, func(x, y float64) bool { return x > y }} }
func LtConst(a Ref, k float64) Cond { return constCmp{a, 1, k, func(x, y float64) bool { return x < y }} }

// LtRefScaled tests a < b*scale (bb_squeeze: bb_width < bb_width_avg*0.8).
func LtRefScaled(a, b Ref, scale float64) Cond {
	return refScaled{a, b, scale, func(x, y float64) bool { return x < y }}
}

type refScaled struct {
	a, b  Ref
	scale float64
	op    func(a, b float64) bool
}

func (c refScaled) eval(f *indicators.Frame, i int) (bool, bool) {
	av, aok := value(f, c.a, i)
	bv, bok := value(f, c.b, i)
	if !aok || !bok {
		return false, false
	}
	return c.op(av, bv*c.scale), true
}
