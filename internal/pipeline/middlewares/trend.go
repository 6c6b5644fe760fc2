package middlewares

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"tplan/internal/market"
	"tplan/internal/pipeline"
	"tplan/internal/trend"
)

const (
	rsiPeriod  = 14
	adxPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Trend stage 2 非关键步骤：趋势打分。数据不足时降级成 warning。
type Trend struct {
	cfg     trend.Config
	timeout time.Duration
}

func NewTrend(cfg trend.Config, timeout time.Duration) *Trend {
	if cfg == (trend.Config{}) {
		cfg = trend.DefaultConfig()
	}
	return &Trend{cfg: cfg, timeout: timeout}
}

func (m *Trend) Meta() pipeline.Meta {
	return pipeline.Meta{Name: "trend", Stage: 2, Critical: false, Timeout: m.timeout}
}

func (m *Trend) Handle(ctx context.Context, tc *pipeline.TickerContext) error {
	candles := tc.Candles()
	if len(candles) == 0 {
		return fmt.Errorf("no candles in context")
	}
	closes := market.Closes(candles)
	res, err := trend.Compute(closes, indicatorSignals(candles, closes), m.cfg)
	if err != nil {
		return err
	}
	tc.SetTrend(res)
	return nil
}

// indicatorSignals 从 30m 序列算 RSI/MACD/ADX 快照。bars 不够或尾值
// 非有限数时对应项留空，交给趋势引擎降权。
func indicatorSignals(candles []market.Candle, closes []float64) trend.Signals {
	var sig trend.Signals
	if len(closes) > rsiPeriod {
		sig.RSI = lastFinite(talib.Rsi(closes, rsiPeriod))
	}
	if len(closes) > macdSlow+macdSignal {
		_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		sig.MACDHist = lastFinite(hist)
	}
	if len(candles) > 2*adxPeriod {
		sig.ADX = lastFinite(talib.Adx(market.Highs(candles), market.Lows(candles), closes, adxPeriod))
	}
	return sig
}

func lastFinite(s []float64) *float64 {
	if len(s) == 0 {
		return nil
	}
	v := s[len(s)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
