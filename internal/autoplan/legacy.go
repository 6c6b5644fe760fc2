package autoplan

import (
	"strings"

	"tplan/internal/levels"
)

// tfPriority 结构止损/止盈选级用的时间框优先级，越大越重要（W > D > 4H > 1H > 30m）。
func tfPriority(tf string) int {
	tfu := strings.ToUpper(tf)
	switch {
	case strings.HasPrefix(tfu, "W-LOW"):
		return 100
	case strings.HasPrefix(tfu, "W-1"):
		return 95
	case strings.HasPrefix(tfu, "W"):
		return 90
	case strings.HasPrefix(tfu, "D"):
		return 80
	case strings.Contains(tfu, "4H"):
		return 70
	case strings.Contains(tfu, "1H"):
		return 60
	case strings.Contains(tfu, "30"):
		return 50
	default:
		return 10
	}
}

// NearestLevelPlan 旧版最近位启发式，不走 Strategy 抽象，直接在 Level 列表上取
// (entry, stop, target)。任一分量可能缺失（nil）。
//
// LONG:  entry = 现价下方最近支撑；stop = 优先级最高的支撑（同级取更低价）；
// target = entry 上方最近阻力。SHORT 为镜像。
func NearestLevelPlan(lvls []levels.Level, currentPrice float64, isLong bool) (entry, stop, target *float64) {
	if len(lvls) == 0 {
		return nil, nil, nil
	}

	var supports, resists []levels.Level
	for _, lv := range lvls {
		switch lv.Kind {
		case levels.KindSupport:
			supports = append(supports, lv)
		case levels.KindResistance:
			resists = append(resists, lv)
		}
	}

	if isLong {
		entry = nearestBelow(supports, currentPrice)
		if entry == nil {
			entry = nearestByDistance(supports, currentPrice)
		}
		stop = strongestLevel(supports, false)
		base := currentPrice
		if entry != nil {
			base = *entry
		}
		target = nearestAbove(resists, base)
		if target == nil {
			target = extremePrice(resists, true)
		}
		return entry, stop, target
	}

	entry = nearestAbove(resists, currentPrice)
	if entry == nil {
		entry = nearestByDistance(resists, currentPrice)
	}
	stop = strongestLevel(resists, true)
	base := currentPrice
	if entry != nil {
		base = *entry
	}
	target = nearestBelow(supports, base)
	if target == nil {
		target = extremePrice(supports, false)
	}
	return entry, stop, target
}

// nearestBelow 不高于 ref 的最近价。
func nearestBelow(lvls []levels.Level, ref float64) *float64 {
	var best *float64
	for _, lv := range lvls {
		p := lv.Price
		if p <= ref && (best == nil || p > *best) {
			best = &p
		}
	}
	return best
}

// nearestAbove 不低于 ref 的最近价。
func nearestAbove(lvls []levels.Level, ref float64) *float64 {
	var best *float64
	for _, lv := range lvls {
		p := lv.Price
		if p >= ref && (best == nil || p < *best) {
			best = &p
		}
	}
	return best
}

func nearestByDistance(lvls []levels.Level, ref float64) *float64 {
	var best *float64
	var bestDist float64
	for _, lv := range lvls {
		p := lv.Price
		d := p - ref
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist {
			best = &p
			bestDist = d
		}
	}
	return best
}

// strongestLevel 先比 tfPriority（高优先），同级时做多取更低价、做空取更高价。
func strongestLevel(lvls []levels.Level, preferHigh bool) *float64 {
	var best *levels.Level
	for i := range lvls {
		lv := &lvls[i]
		if best == nil {
			best = lv
			continue
		}
		pb, pc := tfPriority(best.Timeframe), tfPriority(lv.Timeframe)
		if pc > pb {
			best = lv
		} else if pc == pb {
			if preferHigh && lv.Price > best.Price {
				best = lv
			} else if !preferHigh && lv.Price < best.Price {
				best = lv
			}
		}
	}
	if best == nil {
		return nil
	}
	p := best.Price
	return &p
}

// extremePrice 最高（high=true）或最低价兜底。
func extremePrice(lvls []levels.Level, high bool) *float64 {
	var best *float64
	for _, lv := range lvls {
		p := lv.Price
		if best == nil || (high && p > *best) || (!high && p < *best) {
			best = &p
		}
	}
	return best
}
