package levels

import (
	"fmt"
	"sort"
	"strings"
)

// Kind 结构位类别。
type Kind string

const (
	KindSupport    Kind = "support"
	KindResistance Kind = "resistance"
	KindPivot      Kind = "pivot"
)

// Level 打平后的单个结构位，下游（auto plan、GUI 列表）按此消费。
// Score 仅用于排序，不是概率。
type Level struct {
	Timeframe string  `json:"timeframe"`
	Price     float64 `json:"price"`
	Kind      Kind    `json:"kind"`
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	Meta      string  `json:"meta,omitempty"`
}

// TimeframeWeight 周期重要度（越高越重要），用于打分与排序。
func TimeframeWeight(tf string) float64 {
	switch strings.ToUpper(strings.TrimSpace(tf)) {
	case "W-LOW":
		return 1.00
	case "W-1":
		return 0.97
	case "W":
		return 0.99
	case "D":
		return 0.85
	case "4H":
		return 0.75
	case "1H":
		return 0.70
	case "30M":
		return 0.65
	default:
		return 0.50
	}
}

// Flatten 把结构位表打平成 Level 列表：
// bottom→support、mid→pivot、top→resistance，摆动高点按新旧衰减，
// 按（周期权重降序，价格升序）排序后截到 maxLevels。
func Flatten(rows []Row, maxLevels int) []Level {
	if maxLevels <= 0 {
		maxLevels = DefaultConfig().MaxLevels
	}
	var out []Level
	for _, row := range rows {
		w := TimeframeWeight(row.TF)
		out = append(out,
			Level{
				Timeframe: row.TF,
				Price:     row.Bottom,
				Kind:      KindSupport,
				Label:     fmt.Sprintf("%s bottom", row.TF),
				Score:     w * 1.00,
				Meta:      "sheet:bottom",
			},
			Level{
				Timeframe: row.TF,
				Price:     row.Mid,
				Kind:      KindPivot,
				Label:     fmt.Sprintf("%s mid", row.TF),
				Score:     w * 0.95,
				Meta:      "sheet:mid",
			},
			Level{
				Timeframe: row.TF,
				Price:     row.Top,
				Kind:      KindResistance,
				Label:     fmt.Sprintf("%s top", row.TF),
				Score:     w * 0.98,
				Meta:      "sheet:top",
			},
		)
		for i, high := range row.PrevHighs {
			out = append(out, Level{
				Timeframe: row.TF,
				Price:     high,
				Kind:      KindResistance,
				Label:     fmt.Sprintf("%s swing high %d", row.TF, i+1),
				Score:     w * 0.90 * (1 - 0.05*float64(i)),
				Meta:      "sheet:swing",
			})
		}
	}
	SortLevels(out)
	if len(out) > maxLevels {
		out = out[:maxLevels]
	}
	return out
}

// SortLevels 按文档化的排序键稳定排序（周期权重降序，价格升序）。
func SortLevels(list []Level) {
	sort.SliceStable(list, func(i, j int) bool {
		wi, wj := TimeframeWeight(list[i].Timeframe), TimeframeWeight(list[j].Timeframe)
		if wi != wj {
			return wi > wj
		}
		return list[i].Price < list[j].Price
	})
}
