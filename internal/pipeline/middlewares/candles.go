// Package middlewares 提供流水线各步骤的具体实现。
package middlewares

import (
	"context"
	"fmt"
	"time"

	"tplan/internal/gateway/yahoo"
	"tplan/internal/market"
	"tplan/internal/pipeline"
)

// CandleSource 行情拉取能力，生产实现是 yahoo.Client。
type CandleSource interface {
	FetchOHLC(ctx context.Context, rawSymbol, rng, interval string) ([]market.Candle, error)
	LastPrice(ctx context.Context, rawSymbol string) (yahoo.PriceResult, error)
}

// Candles stage 0 关键步骤：拉基础 K 线和最新价，后面所有步骤都吃它的输出。
type Candles struct {
	source   CandleSource
	rng      string
	interval string
	timeout  time.Duration
}

func NewCandles(source CandleSource, rng, interval string, timeout time.Duration) *Candles {
	if rng == "" {
		rng = yahoo.DefaultRange
	}
	if interval == "" {
		interval = yahoo.DefaultInterval
	}
	return &Candles{source: source, rng: rng, interval: interval, timeout: timeout}
}

func (m *Candles) Meta() pipeline.Meta {
	return pipeline.Meta{Name: "candles", Stage: 0, Critical: true, Timeout: m.timeout}
}

func (m *Candles) Handle(ctx context.Context, tc *pipeline.TickerContext) error {
	candles, err := m.source.FetchOHLC(ctx, tc.Ticker, m.rng, m.interval)
	if err != nil {
		return fmt.Errorf("fetch ohlc: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("fetch ohlc: empty series for %s", tc.Ticker)
	}
	tc.SetCandles(candles)

	quote, err := m.source.LastPrice(ctx, tc.Ticker)
	if err != nil {
		// 最新价拿不到时退回最后一根收盘，别让整条流水线挂掉
		tc.SetPrice(candles[len(candles)-1].Close)
		return nil
	}
	tc.SetPrice(quote.Price)
	return nil
}
