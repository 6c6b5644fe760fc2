// Package vol 从 K 线序列推导波动指标，供动态 TPSL 引擎做 regime 判定。
package vol

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"

	"tplan/internal/market"
)

var ErrNotEnoughData = errors.New("not enough data for volatility metrics")

// Metrics 一次规划请求所需的波动快照。
type Metrics struct {
	ATR    float64 `json:"atr"`     // 价格单位
	ATRPct float64 `json:"atr_pct"` // ATR / 最新收盘
	RVol   float64 `json:"rvol"`    // 最新成交量 / 此前 volWindow 根均量，无历史时为 0
}

const (
	DefaultATRPeriod = 14
	DefaultVolWindow = 20
)

// Compute 计算 ATR（talib，period 周期）与相对成交量。
// bars 不足 period+1 无法算 ATR，按数据错误返回。
func Compute(candles []market.Candle, period, volWindow int) (Metrics, error) {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if volWindow <= 0 {
		volWindow = DefaultVolWindow
	}
	if len(candles) < period+1 {
		return Metrics{}, fmt.Errorf("%w: have %d bars, need %d", ErrNotEnoughData, len(candles), period+1)
	}

	highs := market.Highs(candles)
	lows := market.Lows(candles)
	closes := market.Closes(candles)

	atrSeries := talib.Atr(highs, lows, closes, period)
	atr := atrSeries[len(atrSeries)-1]
	if atr <= 0 {
		return Metrics{}, fmt.Errorf("%w: non-positive ATR", ErrNotEnoughData)
	}

	lastClose := closes[len(closes)-1]
	atrPct := 0.0
	if lastClose > 0 {
		atrPct = atr / lastClose
	}

	return Metrics{
		ATR:    atr,
		ATRPct: atrPct,
		RVol:   relativeVolume(market.Volumes(candles), volWindow),
	}, nil
}

// relativeVolume 最新量相对此前 window 根均量；样本不足或均量为零时返回 0。
func relativeVolume(volumes []float64, window int) float64 {
	if len(volumes) < 2 {
		return 0
	}
	last := volumes[len(volumes)-1]
	hist := volumes[:len(volumes)-1]
	if len(hist) > window {
		hist = hist[len(hist)-window:]
	}
	var sum float64
	for _, v := range hist {
		sum += v
	}
	mean := sum / float64(len(hist))
	if mean <= 0 {
		return 0
	}
	return last / mean
}
