package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundToTick 把价格对齐到 tick 的整数倍。up=true 时结果不小于原价，
// 否则不大于原价。十进制运算规避浮点毛刺（0.1*3 ≠ 0.3 一类）。
func RoundToTick(price, tick float64, up bool) float64 {
	if tick <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)

	rounded := p.Div(t).Floor().Mul(t)
	if up && rounded.LessThan(p) {
		rounded = rounded.Add(t)
	}
	f, _ := rounded.Float64()
	return f
}
