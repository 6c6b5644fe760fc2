package levels

import (
	"fmt"
	"math"

	"tplan/internal/market"
)

// Row 单个周期的结构位输出（表格形态，供报表/GUI 使用）。
type Row struct {
	TF            string    `json:"tf"`
	CurrentCandle string    `json:"current_candle"`
	Bottom        float64   `json:"bottom"`
	Mid           float64   `json:"mid"`
	Top           float64   `json:"top"`
	SupportRes    string    `json:"support_res"`
	PrevHighs     []float64 `json:"prev_highs,omitempty"`
}

// ComputeSheet 把基础 K 线序列按配置逐周期聚合成结构位表。
// 空序列返回空表；不支持的周期编码报数据错误。
func ComputeSheet(candles []market.Candle, cfg Config) ([]Row, error) {
	conf := cfg.normalized()

	tfs := append([]string(nil), conf.TFs...)
	if conf.IncludeM30 && !contains(tfs, "30m") {
		tfs = append(tfs, "30m")
	}

	var (
		rows      []Row
		weeklyRef *Row // 供 4H 偏置比对的周线参考带
	)
	for _, tf := range tfs {
		tfCandles, err := market.Resample(candles, tf)
		if err != nil {
			return nil, err
		}
		if len(tfCandles) == 0 {
			// 原始数据过短时退回基础序列本身
			tfCandles = candles
		}
		if len(tfCandles) == 0 {
			continue
		}

		if tf == "W" && conf.WeeklyDetail {
			weekRows := weeklyDetailRows(tfCandles, conf)
			if len(weekRows) > 0 {
				rows = append(rows, weekRows...)
				ref := weekRows[0]
				weeklyRef = &ref
			}
			continue
		}

		last := tfCandles[len(tfCandles)-1]
		currentTxt := fmtRange(round2(last.Low), round2(last.High))

		var bottom, top float64
		if tf == "4H" {
			bottom, top = extentsForH4(tfCandles, conf)
		} else {
			bottom, top = extentsForTF(tfCandles, conf.smoothBars(tf), conf.rangeMode(tf), conf.ExpansionMult)
		}
		mid := round2((bottom + top) / 2)

		if tf == "W" {
			ref := Row{TF: tf, Bottom: bottom, Mid: mid, Top: top}
			weeklyRef = &ref
		}
		if tf == "4H" && weeklyRef != nil && conf.H4BiasWhenMatchesWeekly {
			wSpan := math.Max(weeklyRef.Top-weeklyRef.Bottom, 1e-9)
			eps := conf.H4BiasEpsRatio * wSpan
			if isAlmostSameRange(bottom, top, weeklyRef.Bottom, weeklyRef.Top, eps) {
				bottom, top = biasTowardMid(bottom, mid, top, conf.H4BiasCompress)
				mid = round2((bottom + top) / 2)
			}
		}

		rows = append(rows, Row{
			TF:            tf,
			CurrentCandle: currentTxt,
			Bottom:        round2(bottom),
			Mid:           mid,
			Top:           round2(top),
			SupportRes:    fmtPair(round2(bottom), mid),
			PrevHighs:     market.SwingHighs(tfCandles, 3, 200),
		})
	}
	return rows, nil
}

// weeklyDetailRows 生成周线三连行：W（当前周）、W-1（上一周）、W-low（近 span 周最低低点所在周）。
// 每行 Bottom=low、Top=high（含影线）、Mid 为算术中点。
func weeklyDetailRows(weekly []market.Candle, cfg Config) []Row {
	if len(weekly) == 0 {
		return nil
	}
	highs := market.SwingHighs(weekly, 3, 200)

	makeRow := func(label string, idx int) (Row, bool) {
		if idx < 0 || idx >= len(weekly) {
			return Row{}, false
		}
		bar := weekly[idx]
		lo, hi := round2(bar.Low), round2(bar.High)
		mid := round2((lo + hi) / 2)
		return Row{
			TF:            label,
			CurrentCandle: fmtRange(lo, hi),
			Bottom:        lo,
			Mid:           mid,
			Top:           hi,
			SupportRes:    fmtPair(lo, mid),
			PrevHighs:     highs,
		}, true
	}

	var rows []Row
	last := len(weekly) - 1
	if row, ok := makeRow("W", last); ok {
		rows = append(rows, row)
	}
	if row, ok := makeRow("W-1", last-1); ok {
		rows = append(rows, row)
	}

	span := cfg.WeeklyDetailSpan
	if span < 1 {
		span = 1
	}
	start := len(weekly) - span
	if start < 0 {
		start = 0
	}
	lowest := start
	for i := start + 1; i < len(weekly); i++ {
		if weekly[i].Low < weekly[lowest].Low {
			lowest = i
		}
	}
	if row, ok := makeRow("W-low", lowest); ok {
		rows = append(rows, row)
	}
	return rows
}

// extentsForTF 通用周期区间（W/D/1H/30m，4H 非 donchian 模式也走这里）。
func extentsForTF(candles []market.Candle, n int, mode string, mult float64) (float64, float64) {
	switch mode {
	case ModeCurrent:
		return currentRangeExtents(candles)
	case ModeBody:
		return smoothedBodyExtents(candles, n)
	default:
		if autoPickMode(candles, mult) == ModeCurrent {
			return currentRangeExtents(candles)
		}
		return smoothedBodyExtents(candles, n)
	}
}

// extentsForH4 4H 专用：donchian 模式取近 N 根 wick 极值，其余同通用逻辑。
func extentsForH4(candles []market.Candle, cfg Config) (float64, float64) {
	if cfg.RangeModeH4 == ModeDonchian {
		n := cfg.DonchianBarsH4
		if n < 1 {
			n = 1
		}
		tail := candles
		if len(tail) > n {
			tail = tail[len(tail)-n:]
		}
		bottom := tail[0].Low
		top := tail[0].High
		for _, bar := range tail[1:] {
			if bar.Low < bottom {
				bottom = bar.Low
			}
			if bar.High > top {
				top = bar.High
			}
		}
		return round2(bottom), round2(top)
	}
	return extentsForTF(candles, cfg.SmoothBarsH4, cfg.RangeModeH4, cfg.ExpansionMult)
}

// smoothedBodyExtents 最近 n 根实体（开收盘极值）的均值区间。
func smoothedBodyExtents(candles []market.Candle, n int) (float64, float64) {
	if n < 1 {
		n = 1
	}
	tail := candles
	if len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	var lo, hi float64
	for _, bar := range tail {
		lo += bar.BodyLow()
		hi += bar.BodyHigh()
	}
	count := float64(len(tail))
	return round2(lo / count), round2(hi / count)
}

// currentRangeExtents 最新一根的全振幅（含影线）。
func currentRangeExtents(candles []market.Candle) (float64, float64) {
	last := candles[len(candles)-1]
	return round2(last.Low), round2(last.High)
}

// autoPickMode 最新一根相对近 5 根实体均幅构成扩张时切 current，否则 body。
func autoPickMode(candles []market.Candle, mult float64) string {
	if len(candles) < 3 {
		return ModeCurrent
	}
	last := candles[len(candles)-1]
	rngCurr := last.Range()

	tail := candles
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	var sum float64
	for _, bar := range tail {
		sum += math.Abs(bar.Close - bar.Open)
	}
	bodyRng := sum / float64(len(tail))
	if bodyRng <= 0 {
		bodyRng = rngCurr
	}
	if rngCurr >= mult*bodyRng {
		return ModeCurrent
	}
	return ModeBody
}

// biasTowardMid 把区间两端向中值压缩 compress 比例。
func biasTowardMid(bottom, mid, top, compress float64) (float64, float64) {
	b := mid - (mid-bottom)*(1-compress)
	t := mid + (top-mid)*(1-compress)
	return round2(b), round2(t)
}

// isAlmostSameRange 端点都在 eps 内，或 4H 带嵌在周线带内且跨度占比 >= 80%。
func isAlmostSameRange(b1, t1, b2, t2, eps float64) bool {
	if math.Abs(b1-b2) <= eps && math.Abs(t1-t2) <= eps {
		return true
	}
	span1, span2 := t1-b1, t2-b2
	if span1 <= 0 || span2 <= 0 {
		return false
	}
	return b1 >= b2-eps && t1 <= t2+eps && span1/span2 >= 0.8
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func fmtRange(lo, hi float64) string {
	return fmt.Sprintf("%s – %s", fmtNum(lo), fmtNum(hi))
}

func fmtPair(a, b float64) string {
	return fmt.Sprintf("%s & %s", fmtNum(a), fmtNum(b))
}

func fmtNum(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
