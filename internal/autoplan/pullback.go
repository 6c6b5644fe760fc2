package autoplan

import (
	"sort"

	"tplan/internal/levels"
	"tplan/internal/trend"
)

// PullbackStrategy 回踩支撑分批入场：价格下方最多取 3 个支撑，
// 30%/30%/40% 三腿，近腿在上。止损与目标的百分比是占位参数，
// 待结构化止损引擎落地后替换。
type PullbackStrategy struct{}

func (PullbackStrategy) Name() string { return "pullback" }

func (PullbackStrategy) BuildPlan(lvls []levels.Level, currentPrice float64, isLong bool, _ *trend.Result) (*StrategyPlan, error) {
	// 暂只支持做多
	if !isLong {
		return nil, nil
	}

	var below []float64
	for _, lv := range lvls {
		if lv.Kind == levels.KindSupport && lv.Price < currentPrice {
			below = append(below, lv.Price)
		}
	}
	if len(below) == 0 {
		return nil, nil
	}
	// 距离现价最近的三个支撑，近腿在上
	sort.Sort(sort.Reverse(sort.Float64Slice(below)))
	if len(below) > 3 {
		below = below[:3]
	}

	top := below[0]
	bottom := below[len(below)-1]
	mid := (top + bottom) / 2

	entries := []PlanLeg{
		{Price: top, SizeFrac: 0.3},
		{Price: mid, SizeFrac: 0.3},
		{Price: bottom, SizeFrac: 0.4},
	}
	targets := []Target{
		{Price: top * 1.05, Label: "TP1"},
		{Price: top * 1.10, Label: "TP2"},
		{Price: top * 1.15, Label: "TP3"},
	}
	return &StrategyPlan{
		Name:    "pullback",
		Side:    SideLong,
		Entries: entries,
		Stop:    bottom * 0.97, // 占位：最低支撑下方 3%
		Targets: targets,
		Notes:   "Basic pullback strategy. Improve later with structure detection.",
	}, nil
}
