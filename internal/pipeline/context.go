package pipeline

import (
	"strings"
	"sync"
	"time"

	"tplan/internal/levels"
	"tplan/internal/market"
	"tplan/internal/trend"
	"tplan/internal/vol"
)

// TickerContext 某个标的在一次分析流水线里的上下文。
// 各 stage 并行写入，读写都走锁。
type TickerContext struct {
	Ticker    string
	StartedAt time.Time

	mu       sync.RWMutex
	price    float64
	candles  []market.Candle
	sheet    []levels.Row
	levels   []levels.Level
	trend    *trend.Result
	vol      *vol.Metrics
	warnings []string
}

// NewContext 初始化上下文。
func NewContext(ticker string) *TickerContext {
	return &TickerContext{
		Ticker:    strings.ToUpper(strings.TrimSpace(ticker)),
		StartedAt: time.Now(),
	}
}

// SetPrice 记录最新价。
func (tc *TickerContext) SetPrice(p float64) {
	tc.mu.Lock()
	tc.price = p
	tc.mu.Unlock()
}

// Price 最新价，没取到时为 0。
func (tc *TickerContext) Price() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.price
}

// SetCandles 保存基础 K 线序列（30m，已归一化升序）。
func (tc *TickerContext) SetCandles(candles []market.Candle) {
	dst := make([]market.Candle, len(candles))
	copy(dst, candles)
	tc.mu.Lock()
	tc.candles = dst
	tc.mu.Unlock()
}

// Candles 基础序列的副本。
func (tc *TickerContext) Candles() []market.Candle {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if len(tc.candles) == 0 {
		return nil
	}
	out := make([]market.Candle, len(tc.candles))
	copy(out, tc.candles)
	return out
}

// SetLevels 保存结构位表与扁平化清单。
func (tc *TickerContext) SetLevels(sheet []levels.Row, flat []levels.Level) {
	tc.mu.Lock()
	tc.sheet = sheet
	tc.levels = flat
	tc.mu.Unlock()
}

// Sheet 各时间框的结构位行。
func (tc *TickerContext) Sheet() []levels.Row {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	out := make([]levels.Row, len(tc.sheet))
	copy(out, tc.sheet)
	return out
}

// Levels 扁平化后的结构位清单。
func (tc *TickerContext) Levels() []levels.Level {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	out := make([]levels.Level, len(tc.levels))
	copy(out, tc.levels)
	return out
}

// SetTrend 保存趋势评估。
func (tc *TickerContext) SetTrend(res *trend.Result) {
	tc.mu.Lock()
	tc.trend = res
	tc.mu.Unlock()
}

// Trend 趋势评估，非关键步骤失败时为 nil。
func (tc *TickerContext) Trend() *trend.Result {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.trend
}

// SetVol 保存波动指标。
func (tc *TickerContext) SetVol(m vol.Metrics) {
	tc.mu.Lock()
	tc.vol = &m
	tc.mu.Unlock()
}

// Vol 波动指标，未计算时为 nil。
func (tc *TickerContext) Vol() *vol.Metrics {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.vol
}

// AddWarning 记录非关键失败。
func (tc *TickerContext) AddWarning(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	tc.mu.Lock()
	tc.warnings = append(tc.warnings, msg)
	tc.mu.Unlock()
}

// Warnings 告警列表副本。
func (tc *TickerContext) Warnings() []string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	out := make([]string, len(tc.warnings))
	copy(out, tc.warnings)
	return out
}
