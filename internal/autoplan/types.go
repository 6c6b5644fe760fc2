package autoplan

import (
	"tplan/internal/levels"
	"tplan/internal/trend"
)

// Side 计划方向。
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// PlanLeg 分批挂单的一腿：价格 + 仓位占比（0.3/0.3/0.4 等）。
type PlanLeg struct {
	Price    float64 `json:"price"`
	SizeFrac float64 `json:"size_frac"`
}

// Target 单个止盈目标（TP1、TP2 ...，按由近及远排列）。
type Target struct {
	Price float64 `json:"price"`
	Label string  `json:"label"`
}

// StrategyPlan 某一策略给出的完整挂单方案，构造后不再修改。
type StrategyPlan struct {
	Name    string    `json:"name"`
	Side    Side      `json:"side"`
	Entries []PlanLeg `json:"entries"`
	Stop    float64   `json:"stop"`
	Targets []Target  `json:"targets"`
	Notes   string    `json:"notes,omitempty"`
}

// Result 全策略批跑的产物：首个可用方案为主，其余作备选。
type Result struct {
	Primary      StrategyPlan   `json:"primary"`
	Alternatives []StrategyPlan `json:"alternatives,omitempty"`
	Trend        *trend.Result  `json:"trend,omitempty"`
}

// Strategy 策略契约。返回 (nil, nil) 表示"该策略不适用"（比如价格上方无阻力），
// 只有输入本身非法才返回 error；常规的无信号绝不报错。
type Strategy interface {
	Name() string
	BuildPlan(lvls []levels.Level, currentPrice float64, isLong bool, tr *trend.Result) (*StrategyPlan, error)
}
