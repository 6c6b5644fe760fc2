package autoplan

import (
	"errors"

	"tplan/internal/levels"
	"tplan/internal/logger"
	"tplan/internal/trend"
)

// ErrNoPlan 所有策略都不适用（有效输入、无可交易信号）。
var ErrNoPlan = errors.New("no strategy produced a plan")

// 策略注册表：启动期构造一次，只读。先注册的优先成为 primary。
// 现阶段固定 pullback 优先于 breakout（非趋势感知，待产品澄清后再调整）。
var strategies = []Strategy{
	PullbackStrategy{},
	BreakoutStrategy{},
}

// ComputeFull 批跑全部策略。单个策略报错或 panic 只会让它自己出局，
// 不中断整批；全部不适用时返回 ErrNoPlan。
func ComputeFull(lvls []levels.Level, currentPrice float64, isLong bool, tr *trend.Result) (*Result, error) {
	var plans []StrategyPlan
	for _, strat := range strategies {
		plan := runStrategy(strat, lvls, currentPrice, isLong, tr)
		if plan != nil {
			plans = append(plans, *plan)
		}
	}
	if len(plans) == 0 {
		return nil, ErrNoPlan
	}
	return &Result{
		Primary:      plans[0],
		Alternatives: plans[1:],
		Trend:        tr,
	}, nil
}

func runStrategy(strat Strategy, lvls []levels.Level, price float64, isLong bool, tr *trend.Result) (plan *StrategyPlan) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("autoplan strategy %s panicked: %v", strat.Name(), r)
			plan = nil
		}
	}()
	plan, err := strat.BuildPlan(lvls, price, isLong, tr)
	if err != nil {
		logger.Debugf("autoplan strategy %s unavailable: %v", strat.Name(), err)
		return nil
	}
	return plan
}

// Compute 旧版标量接口：压缩成 (entry, stop, target) 三元组给简单调用方。
// entry 为主方案各腿按仓位加权的均价；target 取首个（最近）目标，
// 无目标时退到 entry×1.05。
func Compute(lvls []levels.Level, currentPrice float64, isLong bool) (entry, stop, target float64, err error) {
	result, err := ComputeFull(lvls, currentPrice, isLong, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	plan := result.Primary

	entry = weightedEntry(plan.Entries)
	stop = plan.Stop
	if len(plan.Targets) > 0 {
		target = plan.Targets[0].Price
	} else {
		target = entry * 1.05
	}
	return entry, stop, target, nil
}

// weightedEntry 各腿仓位加权均价；权重和异常时归一化或退化到等权。
func weightedEntry(entries []PlanLeg) float64 {
	if len(entries) == 0 {
		return 0
	}
	var total, weighted float64
	for _, leg := range entries {
		total += leg.SizeFrac
		weighted += leg.Price * leg.SizeFrac
	}
	if total <= 0 {
		var sum float64
		for _, leg := range entries {
			sum += leg.Price
		}
		return sum / float64(len(entries))
	}
	return weighted / total
}
