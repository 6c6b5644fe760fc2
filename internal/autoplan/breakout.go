package autoplan

import (
	"tplan/internal/levels"
	"tplan/internal/trend"
)

// BreakoutStrategy 突破入场：取价格上方最近的结构位做单腿触发，
// 止损在触发价下方 4%（占位），目标为 5%/10%/15%/20% 的延伸位。
type BreakoutStrategy struct{}

func (BreakoutStrategy) Name() string { return "breakout" }

func (BreakoutStrategy) BuildPlan(lvls []levels.Level, currentPrice float64, isLong bool, _ *trend.Result) (*StrategyPlan, error) {
	if !isLong {
		return nil, nil
	}

	// 现价上方最近的阻力位作为触发价
	trigger := 0.0
	found := false
	for _, lv := range lvls {
		if lv.Kind != levels.KindResistance || lv.Price <= currentPrice {
			continue
		}
		if !found || lv.Price < trigger {
			trigger = lv.Price
			found = true
		}
	}
	if !found {
		return nil, nil
	}

	targets := []Target{
		{Price: trigger * 1.05, Label: "TP1"},
		{Price: trigger * 1.10, Label: "TP2"},
		{Price: trigger * 1.15, Label: "TP3"},
		{Price: trigger * 1.20, Label: "TP4"},
	}
	return &StrategyPlan{
		Name:    "breakout",
		Side:    SideLong,
		Entries: []PlanLeg{{Price: trigger, SizeFrac: 1.0}},
		Stop:    trigger * 0.96, // 占位：触发价下 4%
		Targets: targets,
		Notes:   "Basic breakout strategy. Trigger above first resistance.",
	}, nil
}
