package market

import "math"

// SwingHighs 检测摆动高点：高点同时超过左右相邻 K 线、排除仍在形成的最后一根。
// 仅扫描尾部 lookback 根，先截到最近 12 个峰，再取最近 k 个，新→旧排列，保留两位小数。
func SwingHighs(candles []Candle, k, lookback int) []float64 {
	if len(candles) < 3 {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	if lookback <= 0 {
		lookback = 200
	}
	window := candles
	if len(window) > lookback+3 {
		window = window[len(window)-lookback-3:]
	}
	window = window[:len(window)-1]

	var peaks []float64
	for i := 1; i < len(window)-1; i++ {
		if window[i].High > window[i-1].High && window[i].High > window[i+1].High {
			peaks = append(peaks, round2(window[i].High))
		}
	}
	if len(peaks) > 12 {
		peaks = peaks[len(peaks)-12:]
	}
	if len(peaks) > k {
		peaks = peaks[len(peaks)-k:]
	}
	// 新的在前
	out := make([]float64, len(peaks))
	for i, v := range peaks {
		out[len(peaks)-1-i] = v
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
