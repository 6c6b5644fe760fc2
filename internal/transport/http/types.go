package planhttp

import (
	"context"

	"tplan/internal/autoplan"
	"tplan/internal/engine"
	"tplan/internal/levels"
	"tplan/internal/vol"
)

// PlannerService 由 app 层实现，transport 只做参数解析与状态码映射。
type PlannerService interface {
	Levels(ctx context.Context, ticker string) (LevelsResponse, error)
	PlanAuto(ctx context.Context, req AutoPlanRequest) (AutoPlanResponse, error)
	PlanDynamic(ctx context.Context, req DynamicPlanRequest) (DynamicPlanResponse, error)
}

// TrendSummary 趋势评估里对下游有用的那几个字段。
type TrendSummary struct {
	Score         float64 `json:"score"`
	Direction     string  `json:"direction"`
	Label         string  `json:"label"`
	TrendType     string  `json:"trend_type"`
	VolState      string  `json:"vol_state"`
	MomentumLabel string  `json:"momentum_label"`
	Comment       string  `json:"comment"`
}

// LevelsResponse GET /api/levels 的响应体。
type LevelsResponse struct {
	Ticker   string         `json:"ticker"`
	Price    float64        `json:"price"`
	Sheet    []levels.Row   `json:"sheet"`
	Levels   []levels.Level `json:"levels"`
	Trend    *TrendSummary  `json:"trend,omitempty"`
	Vol      *vol.Metrics   `json:"vol,omitempty"`
	Markdown string         `json:"markdown,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// AutoPlanRequest POST /api/plan/auto 的请求体。
type AutoPlanRequest struct {
	Ticker string `json:"ticker" binding:"required"`
	Side   string `json:"side"` // long / short，留空按 long
}

// AutoPlanResponse 策略自动方案；没有策略给得出方案时 OK=false。
type AutoPlanResponse struct {
	OK       bool             `json:"ok"`
	Reason   string           `json:"reason,omitempty"`
	Ticker   string           `json:"ticker"`
	Side     string           `json:"side"`
	Price    float64          `json:"price"`
	Result   *autoplan.Result `json:"result,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// DynamicPlanRequest POST /api/plan/dynamic 的请求体。
// 数值字段为 0 时落回配置默认。
type DynamicPlanRequest struct {
	Ticker        string  `json:"ticker" binding:"required"`
	Side          string  `json:"side"`
	Entry         float64 `json:"entry"` // 0 → 最新价
	AccountEquity float64 `json:"account_equity"`
	RiskPct       float64 `json:"risk_pct"`
	TickSize      float64 `json:"tick_size"`
	LotSize       int     `json:"lot_size"`
	Regime        string  `json:"regime"` // 留空由 ATR%/RVOL 自动判定
	Push          bool    `json:"push"`   // 通过后写入 journal 并推送 notes
}

// DynamicPlanResponse 动态风控方案；拒绝时 Result.OK=false、Reason 给原因。
type DynamicPlanResponse struct {
	Ticker   string            `json:"ticker"`
	Side     string            `json:"side"`
	Entry    float64           `json:"entry"`
	Vol      *vol.Metrics      `json:"vol,omitempty"`
	Result   engine.PlanResult `json:"result"`
	PageID   string            `json:"page_id,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}
