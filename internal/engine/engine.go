// Package engine 波动与结构感知的动态止盈止损规划。
// 纯函数：波动 regime 分类 → 结构位与 ATR 目标融合 → tick 取整 → 风险仓位 → 分批计划。
package engine

import (
	"fmt"
	"math"

	"tplan/internal/vol"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// LevelSet 单一时间框的支撑/阻力价位。
type LevelSet struct {
	Support    []float64
	Resistance []float64
}

// Levels 三个时间框的结构位，按原始价位传入，不要求有序。
type Levels struct {
	H4 LevelSet
	D  LevelSet
	W  LevelSet
}

func (l Levels) allSupports() []float64 {
	out := make([]float64, 0, len(l.H4.Support)+len(l.D.Support)+len(l.W.Support))
	out = append(out, l.H4.Support...)
	out = append(out, l.D.Support...)
	out = append(out, l.W.Support...)
	return out
}

func (l Levels) allResistances() []float64 {
	out := make([]float64, 0, len(l.H4.Resistance)+len(l.D.Resistance)+len(l.W.Resistance))
	out = append(out, l.H4.Resistance...)
	out = append(out, l.D.Resistance...)
	out = append(out, l.W.Resistance...)
	return out
}

// MarketConfig 市场最小报价/交易单位，仅用于取整。
type MarketConfig struct {
	TickSize float64
	LotSize  int
}

// ScaleLeg 分批出场的一腿；Take 为 nil 时按 Trail 描述的规则移动止损。
type ScaleLeg struct {
	Qty   int      `json:"qty"`
	Take  *float64 `json:"take,omitempty"`
	Trail string   `json:"trail,omitempty"`
}

// PlanResult OK=false 时仅 Reason 有效，调用方必须先判 OK 再读价格与仓位字段。
type PlanResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`

	Regime     string     `json:"regime,omitempty"`
	Entry      float64    `json:"entry,omitempty"`
	Stop       float64    `json:"stop,omitempty"`
	T1         float64    `json:"t1,omitempty"`
	T2         float64    `json:"t2,omitempty"`
	R1         float64    `json:"r1,omitempty"`
	R2         float64    `json:"r2,omitempty"`
	Shares     int        `json:"shares,omitempty"`
	RiskAmount float64    `json:"risk_amount,omitempty"`
	ScalePlan  []ScaleLeg `json:"scale_plan,omitempty"`
	Notes      []string   `json:"notes,omitempty"`
}

// RegimeTuning 单个 regime 下的参数组。KBuf 为止损缓冲的 ATR 倍数，
// M1/M2 为两档目标的 ATR 倍数；TrailLeg 决定是否留出移动止损尾仓。
type RegimeTuning struct {
	KBuf     float64
	M1       float64
	M2       float64
	T1Frac   float64
	T2Frac   float64
	TrailLeg bool
}

// DefaultTuning 内置 regime 参数表。preset 热更新时整表替换。
func DefaultTuning() map[string]RegimeTuning {
	return map[string]RegimeTuning{
		"calm":   {KBuf: 0.5, M1: 0.8, M2: 1.5, T1Frac: 0.50, T2Frac: 0.50},
		"normal": {KBuf: 0.8, M1: 1.0, M2: 2.0, T1Frac: 0.50, T2Frac: 0.50},
		"hot":    {KBuf: 1.0, M1: 1.3, M2: 2.6, T1Frac: 0.40, T2Frac: 0.40, TrailLeg: true},
		"wild":   {KBuf: 1.3, M1: 1.8, M2: 3.2, T1Frac: 0.40, T2Frac: 0.40, TrailLeg: true},
	}
}

const trailRule = "4H_swing - 0.8*ATR"

// Options 规划参数。Equity/RiskPct 必须由调用方显式给出；
// Regime 非空时跳过分类直接采用；Tuning 为 nil 时用内置表。
type Options struct {
	AccountEquity float64
	RiskPct       float64
	Market        MarketConfig
	Regime        string
	Tuning        map[string]RegimeTuning
}

// ClassifyRegime ATR% 与 RVOL 首个命中的档位，从高往低判。
func ClassifyRegime(atrPct, rvol float64) string {
	switch {
	case atrPct > 0.07 || rvol > 2.5:
		return "wild"
	case atrPct > 0.04 || rvol > 1.5:
		return "hot"
	case atrPct > 0.02 || rvol > 0.8:
		return "normal"
	default:
		return "calm"
	}
}

// PlanDynamic 主入口。拒绝条件按固定顺序硬判：
// 非法 entry/ATR → 止损距离为零 → 仓位归零 → T1 风报比不足 1.7。
func PlanDynamic(entry float64, side Side, metrics vol.Metrics, lvls Levels, opts Options) PlanResult {
	if entry <= 0 || metrics.ATR <= 0 {
		return PlanResult{OK: false, Reason: "Invalid entry or ATR."}
	}

	regime := opts.Regime
	if regime == "" {
		regime = ClassifyRegime(metrics.ATRPct, metrics.RVol)
	}

	tuning := opts.Tuning
	if tuning == nil {
		tuning = DefaultTuning()
	}
	params, found := tuning[regime]
	if !found {
		// 未知档位按 normal 取参，回显也归一成 normal，避免名实不符
		regime = "normal"
		if p, ok := tuning[regime]; ok {
			params = p
		} else {
			params = DefaultTuning()[regime]
		}
	}

	supAll := lvls.allSupports()
	resAll := lvls.allResistances()

	var stopRaw, t1Raw, t2Raw float64
	var stopUp, targetUp bool

	if side == SideLong {
		// 止损挂在入场下方最近支撑之下，无结构时退到 entry-ATR
		base := entry - metrics.ATR
		if s := nearestBelow(entry, supAll); s != nil {
			base = *s
		}
		stopRaw = base - params.KBuf*metrics.ATR

		// 结构阻力给 ATR 目标封顶
		t1s := nearestAbove(entry, resAll)
		var t2s *float64
		if t1s != nil {
			t2s = nearestAbove(*t1s, resAll)
		}
		t1Raw = entry + params.M1*metrics.ATR
		if t1s != nil && *t1s < t1Raw {
			t1Raw = *t1s
		}
		t2Raw = entry + params.M2*metrics.ATR
		if t2s != nil && *t2s < t2Raw {
			t2Raw = *t2s
		}
		// 止损向远离入场方向取整，目标向入场方向收口
		stopUp, targetUp = false, false
	} else {
		base := entry + metrics.ATR
		if r := nearestAbove(entry, resAll); r != nil {
			base = *r
		}
		stopRaw = base + params.KBuf*metrics.ATR

		t1s := nearestBelow(entry, supAll)
		var t2s *float64
		if t1s != nil {
			t2s = nearestBelow(*t1s, supAll)
		}
		t1Raw = entry - params.M1*metrics.ATR
		if t1s != nil && *t1s > t1Raw {
			t1Raw = *t1s
		}
		t2Raw = entry - params.M2*metrics.ATR
		if t2s != nil && *t2s > t2Raw {
			t2Raw = *t2s
		}
		stopUp, targetUp = true, true
	}

	tick := opts.Market.TickSize
	lot := opts.Market.LotSize
	if lot < 1 {
		lot = 1
	}

	stop := RoundToTick(stopRaw, tick, stopUp)
	t1 := RoundToTick(t1Raw, tick, targetUp)
	t2 := RoundToTick(t2Raw, tick, targetUp)

	stopDist := math.Abs(entry - stop)
	if stopDist <= 0 {
		return PlanResult{OK: false, Reason: "Zero/negative stop distance."}
	}

	riskAmount := opts.AccountEquity * math.Max(0, opts.RiskPct)
	rawShares := int(math.Floor(riskAmount / (stopDist * float64(lot))))
	shares := rawShares - rawShares%lot
	if shares < 0 {
		shares = 0
	}
	if shares == 0 {
		return PlanResult{OK: false, Reason: "Position too small at given risk/stop."}
	}

	r1 := math.Abs(t1-entry) / stopDist
	r2 := math.Abs(t2-entry) / stopDist
	if r1 < 1.7 {
		return PlanResult{OK: false, Reason: fmt.Sprintf("RR too low to T1 (%.2fR). Wait for better entry.", r1)}
	}

	var scale []ScaleLeg
	if params.TrailLeg {
		q1 := int(float64(shares) * params.T1Frac)
		q2 := int(float64(shares) * params.T2Frac)
		rest := shares - int(float64(shares)*(params.T1Frac+params.T2Frac))
		scale = []ScaleLeg{
			{Qty: q1, Take: &t1},
			{Qty: q2, Take: &t2},
			{Qty: rest, Trail: trailRule},
		}
	} else {
		q1 := int(float64(shares) * params.T1Frac)
		scale = []ScaleLeg{
			{Qty: q1, Take: &t1},
			{Qty: shares - q1, Take: &t2},
		}
	}

	return PlanResult{
		OK:         true,
		Regime:     regime,
		Entry:      entry,
		Stop:       stop,
		T1:         t1,
		T2:         t2,
		R1:         round2(r1),
		R2:         round2(r2),
		Shares:     shares,
		RiskAmount: riskAmount,
		ScalePlan:  scale,
		Notes: []string{
			"Move stop to breakeven after a close beyond T1 on your decision timeframe.",
			"Then step-trail at last 4H swing with regime buffer.",
		},
	}
}

func nearestBelow(x float64, arr []float64) *float64 {
	var best *float64
	for _, a := range arr {
		v := a
		if v < x && (best == nil || v > *best) {
			best = &v
		}
	}
	return best
}

func nearestAbove(x float64, arr []float64) *float64 {
	var best *float64
	for _, a := range arr {
		v := a
		if v > x && (best == nil || v < *best) {
			best = &v
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
