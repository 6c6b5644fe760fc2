// Package trend 基于 EMA 结构 + 动量 + ADX 的趋势打分。
// 输入收盘序列与可选指标快照，输出 0–100 的趋势质量分、方向与波动状态。
package trend

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

var ErrNotEnoughData = errors.New("not enough data for trend computation")

// Config 趋势引擎参数。权重按 stack/slope/momentum/adx 拆分，总分归一到 0–100。
type Config struct {
	EMAFast int
	EMAMid  int
	EMASlow int

	WeightStack    float64
	WeightSlope    float64
	WeightMomentum float64
	WeightADX      float64

	SlopeLookback int

	VolLookback int
	VolHighZ    float64
	VolLowZ     float64

	// 慢线 n 根内移动 1% 即为满分斜率
	SlopeFullMove float64
	// |MACD hist| 达到该值记满分
	MACDFull     float64
	ADXMinTrend  float64
	ADXFullTrend float64
}

func DefaultConfig() Config {
	return Config{
		EMAFast:        8,
		EMAMid:         21,
		EMASlow:        50,
		WeightStack:    40.0,
		WeightSlope:    30.0,
		WeightMomentum: 20.0,
		WeightADX:      10.0,
		SlopeLookback:  10,
		VolLookback:    20,
		VolHighZ:       1.0,
		VolLowZ:        -0.5,
		SlopeFullMove:  0.01,
		MACDFull:       2.0,
		ADXMinTrend:    10.0,
		ADXFullTrend:   35.0,
	}
}

// Signals 可选的指标快照，缺哪个就降掉对应权重。
type Signals struct {
	RSI      *float64
	MACDHist *float64
	ADX      *float64
}

// Result 一次趋势评估的完整输出。
type Result struct {
	Score     float64 // 0–100
	Direction string  // "UP" / "DOWN" / "CHOP"
	Label     string
	VolState  string // "LOW" / "NORMAL" / "HIGH"

	TrendType     string // "Stable Up" / "Unstable Up" / "Chop" ...
	MomentumScore float64
	MomentumLabel string // "Weak" / "Medium" / "Strong"

	// 各分量换算成 0–100 后的得分
	Components map[string]float64

	Close    float64
	EMAFast  float64
	EMAMid   float64
	EMASlow  float64
	Slope    float64
	VolZ     float64
	EMAStack string
}

// Compute 主入口。closes 按时间升序；bars 不足 emaSlow+lookback+5 视为数据错误。
func Compute(closes []float64, sig Signals, cfg Config) (*Result, error) {
	if len(closes) < cfg.EMASlow+cfg.SlopeLookback+5 {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrNotEnoughData, len(closes), cfg.EMASlow+cfg.SlopeLookback+5)
	}

	emaFast := talib.Ema(closes, cfg.EMAFast)
	emaMid := talib.Ema(closes, cfg.EMAMid)
	emaSlow := talib.Ema(closes, cfg.EMASlow)

	last := len(closes) - 1
	c := closes[last]
	ef := emaFast[last]
	em := emaMid[last]
	es := emaSlow[last]

	// 1) EMA 堆叠（结构分）
	var stackScore float64
	var direction string
	switch {
	case ef > em && em > es:
		stackScore = cfg.WeightStack
		direction = "UP"
	case ef < em && em < es:
		stackScore = cfg.WeightStack
		direction = "DOWN"
	default:
		stackScore = cfg.WeightStack * 0.4
		direction = "CHOP"
	}

	// 2) 慢线斜率（趋势持续性），并用斜率符号修正方向
	n := cfg.SlopeLookback
	slope := (emaSlow[last] - emaSlow[last-n]) / (float64(n) * c)
	slopeNorm := clip(math.Abs(slope)/cfg.SlopeFullMove, 0, 1)
	slopeScore := cfg.WeightSlope * slopeNorm

	switch {
	case slope > 0 && direction != "DOWN":
		direction = "UP"
	case slope < 0 && direction != "UP":
		direction = "DOWN"
	default:
		direction = "CHOP"
	}

	// 3) 动量（RSI + MACD，缺项降权）
	mom01 := momentumScore(sig.RSI, sig.MACDHist, cfg)
	momentumWeight := 0.0
	if sig.RSI != nil || sig.MACDHist != nil {
		momentumWeight = cfg.WeightMomentum
	}
	momentumContrib := momentumWeight * mom01

	// 4) ADX（趋势强度）
	adx01 := adxScore(sig.ADX, cfg)
	adxWeight := 0.0
	if sig.ADX != nil {
		adxWeight = cfg.WeightADX
	}
	adxContrib := adxWeight * adx01

	// 5) 合成总分
	totalRaw := stackScore + slopeScore + momentumContrib + adxContrib
	totalWeight := cfg.WeightStack + cfg.WeightSlope + momentumWeight + adxWeight
	if totalWeight == 0 {
		totalWeight = 1.0
	}
	score := clip(100.0*totalRaw/totalWeight, 0, 100)

	// 6) 标签
	var label string
	switch {
	case score >= 80:
		if direction == "UP" {
			label = "Strong Uptrend"
		} else {
			label = "Strong Downtrend"
		}
	case score >= 65:
		if direction == "UP" {
			label = "Stable Uptrend"
		} else {
			label = "Weak Downtrend"
		}
	case score >= 50:
		label = "Range / Mixed"
	case score >= 35:
		if direction == "DOWN" {
			label = "Weak Downtrend"
		} else {
			label = "Weak Uptrend"
		}
	default:
		label = "No Clear Trend"
	}

	// 7) 波动状态：近 5 根收益率 std 相对近 20 根的 z 值
	z := volZ(closes, cfg.VolLookback)
	var volState string
	switch {
	case z >= cfg.VolHighZ:
		volState = "HIGH"
	case z <= cfg.VolLowZ:
		volState = "LOW"
	default:
		volState = "NORMAL"
	}

	// 8) 趋势形态
	trendType := "Chop"
	if direction == "UP" || direction == "DOWN" {
		word := "Up"
		if direction == "DOWN" {
			word = "Down"
		}
		if score >= 75 && adx01 >= 0.5 {
			trendType = "Stable " + word
		} else if score >= 60 {
			trendType = "Unstable " + word
		}
	}

	components := map[string]float64{
		"ema_stack": stackScore / nonZero(cfg.WeightStack) * 100.0,
		"ema_slope": slopeScore / nonZero(cfg.WeightSlope) * 100.0,
		"momentum":  0.0,
		"adx":       0.0,
	}
	if momentumWeight > 0 {
		components["momentum"] = momentumContrib / momentumWeight * 100.0
	}
	if adxWeight > 0 {
		components["adx"] = adxContrib / adxWeight * 100.0
	}

	return &Result{
		Score:         score,
		Direction:     direction,
		Label:         label,
		VolState:      volState,
		TrendType:     trendType,
		MomentumScore: mom01 * 100.0,
		MomentumLabel: momentumLabel(mom01),
		Components:    components,
		Close:         c,
		EMAFast:       ef,
		EMAMid:        em,
		EMASlow:       es,
		Slope:         slope,
		VolZ:          z,
		EMAStack:      formatEMAStack(ef, em, es),
	}, nil
}

// Comment 两行可读摘要：第一行 EMA 堆叠，第二行趋势概览。
func (r *Result) Comment() string {
	base := fmt.Sprintf("Trend: %s  (score %.0f, dir %s, Momentum=%s, Vol=%s)",
		r.Label, r.Score, r.Direction, r.MomentumLabel, r.VolState)
	if r.EMAStack != "" {
		return r.EMAStack + "\n" + base
	}
	return base
}

func formatEMAStack(ef, em, es float64) string {
	f := fmt.Sprintf("%.2f", ef)
	m := fmt.Sprintf("%.2f", em)
	s := fmt.Sprintf("%.2f", es)
	switch {
	case ef < em && em < es:
		return fmt.Sprintf("EMA8(%s) < EMA21(%s) < EMA50(%s)", f, m, s)
	case ef > em && em > es:
		return fmt.Sprintf("EMA8(%s) > EMA21(%s) > EMA50(%s)", f, m, s)
	default:
		return fmt.Sprintf("EMA8(%s), EMA21(%s), EMA50(%s) (mixed)", f, m, s)
	}
}

// momentumScore RSI+MACD 合成动量，两者都有时 MACD 权重略高（0.6/0.4）。
func momentumScore(rsi, macdHist *float64, cfg Config) float64 {
	if rsi == nil && macdHist == nil {
		return 0.0
	}
	var rsiScore, macdScore float64
	if rsi != nil {
		// 距中性位 50 的偏离，10–90 映射到 0..1
		rsiScore = clip(math.Abs(*rsi-50.0)/40.0, 0, 1)
	}
	if macdHist != nil {
		macdScore = clip(math.Abs(*macdHist)/cfg.MACDFull, 0, 1)
	}
	if rsi != nil && macdHist != nil {
		return clip(0.6*macdScore+0.4*rsiScore, 0, 1)
	}
	return clip(math.Max(rsiScore, macdScore), 0, 1)
}

func momentumLabel(score01 float64) string {
	switch {
	case score01 < 0.33:
		return "Weak"
	case score01 < 0.66:
		return "Medium"
	default:
		return "Strong"
	}
}

func adxScore(adx *float64, cfg Config) float64 {
	if adx == nil {
		return 0.0
	}
	v := *adx
	if v <= cfg.ADXMinTrend {
		return 0.0
	}
	if v >= cfg.ADXFullTrend {
		return 1.0
	}
	return clip((v-cfg.ADXMinTrend)/(cfg.ADXFullTrend-cfg.ADXMinTrend), 0, 1)
}

// volZ 近 5 根收益率波动相对近 lookback 根的 z 值。
func volZ(closes []float64, lookback int) float64 {
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			rets = append(rets, closes[i]/closes[i-1]-1)
		}
	}
	recent := tail(rets, lookback)
	meanVol := stddev(recent)

	latestBlock := meanVol
	if len(recent) > 1 {
		latestBlock = stddev(tail(rets, 5))
	}
	stdVol := meanVol
	if stdVol == 0 {
		stdVol = 1e-9
	}
	return (latestBlock - meanVol) / stdVol
}

func tail(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// stddev 总体标准差（ddof=0）。
func stddev(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var mean float64
	for _, v := range s {
		mean += v
	}
	mean /= float64(len(s))
	var sq float64
	for _, v := range s {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(s)))
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1.0
	}
	return v
}
