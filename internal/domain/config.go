package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ConfigType distinguishes the three config kinds the Config Store holds.
type ConfigType string

const (
	ConfigIndicator ConfigType = "indicator"
	ConfigScoring   ConfigType = "scoring"
	ConfigAnalysis  ConfigType = "analysis"
)

// ConfigRecord is a versioned, immutable (once referenced) configuration
// payload addressed by content hash (spec §3 "Config record").
type ConfigRecord struct {
	ID          int64
	Name        string
	Type        ConfigType
	Version     int
	ConfigData  json.RawMessage
	IsActive    bool
	ContentHash string
}

// IndicatorConfig is the exhaustive indicator parameter surface (spec §6
// "Config object surfaces").
type IndicatorConfig struct {
	MAShort               int     `json:"ma_short"`
	MAMedium              int     `json:"ma_medium"`
	MALong                int     `json:"ma_long"`
	RSIPeriod             int     `json:"rsi_period"`
	RSIOverbought         float64 `json:"rsi_overbought"`
	RSIOversold           float64 `json:"rsi_oversold"`
	MACDFast              int     `json:"macd_fast"`
	MACDSlow              int     `json:"macd_slow"`
	MACDSignal            int     `json:"macd_signal"`
	BBPeriod              int     `json:"bb_period"`
	BBStd                 float64 `json:"bb_std"`
	VolumeAvgPeriod       int     `json:"volume_avg_period"`
	VolumeSpikeMultiplier float64 `json:"volume_spike_multiplier"`
	IchimokuTenkan        int     `json:"ichimoku_tenkan"`
	IchimokuKijun         int     `json:"ichimoku_kijun"`
	IchimokuSenkouB       int     `json:"ichimoku_senkou_b"`
	OBVDivergenceLookback int     `json:"obv_divergence_lookback"`
	SqueezeLookback       int     `json:"squeeze_lookback"`
}

// AnalysisConfig bundles the orchestrator-level knobs that don't belong to
// either the indicator or scoring surfaces but still need to be versioned
// and content-hashed alongside them (spec §6 "analysis_configurations").
type AnalysisConfig struct {
	MinScoreThreshold  float64 `json:"min_score_threshold"`
	AnalysisWindowDays int     `json:"analysis_window_days"`
}

// DefaultIndicatorConfig returns the defaults from spec §4.4's table.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		MAShort: 9, MAMedium: 20, MALong: 50,
		RSIPeriod: 14, RSIOverbought: 70, RSIOversold: 30,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		BBPeriod: 20, BBStd: 2.0,
		VolumeAvgPeriod: 20, VolumeSpikeMultiplier: 1.8,
		IchimokuTenkan: 9, IchimokuKijun: 26, IchimokuSenkouB: 52,
		OBVDivergenceLookback: 30, SqueezeLookback: 20,
	}
}

// ContentHash returns a stable sha256 hex digest of any JSON-serializable
// config payload, independent of struct field or map key order (spec
// invariant 7: "two config payloads that are structurally equal produce the
// same content hash regardless of key order"). It marshals through
// encoding/json then re-canonicalizes by recursively sorting object keys —
// no third-party canonical-JSON library exists in the example pack and the
// canonicalization is small enough not to warrant adding one (see
// DESIGN.md).
func ContentHash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canon, err := canonicalize(generic)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := canonicalize(t[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case []any:
		buf := []byte{'['}
		for i, e := range t {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := canonicalize(e)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		return json.Marshal(t)
	}
}
