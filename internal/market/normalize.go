package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 数据错误：表示调用方给入的行情表无法使用，与"无信号"严格区分。
var (
	ErrMissingColumn = errors.New("missing ohlc column")
	ErrNoTimestamps  = errors.New("could not parse any timestamps")
)

// Record 一行宽松格式的行情数据，列名大小写不敏感。
// 支持的别名：open/o high/h low/l close/c volume/v，
// 时间轴取 date/datetime/timestamp/time/dt 之一。
type Record map[string]any

var columnAliases = map[string]string{
	"open": "o", "o": "o",
	"high": "h", "h": "h",
	"low": "l", "l": "l",
	"close": "c", "c": "c",
	"volume": "v", "v": "v",
	"date": "t", "datetime": "t", "timestamp": "t", "time": "t", "dt": "t",
}

// NormalizeSeries 将宽松表格整理成升序、去重、无缺失 OHLC 的 K 线序列。
// 缺少 o/h/l/c 任一列返回数据错误；无任何可解析时间戳同样报错。
// 单行缺 OHLC 的记录被丢弃；时间戳重复时保留后出现的行。
func NormalizeSeries(records []Record) ([]Candle, error) {
	present := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			if canon, ok := columnAliases[strings.ToLower(strings.TrimSpace(k))]; ok {
				present[canon] = true
			}
		}
	}
	for _, col := range []string{"o", "h", "l", "c"} {
		if !present[col] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	byTime := make(map[int64]Candle, len(records))
	parsedAny := false
	for _, rec := range records {
		ts, ok := recordTime(rec)
		if !ok {
			continue
		}
		parsedAny = true
		vals := map[string]float64{}
		missing := false
		for _, col := range []string{"o", "h", "l", "c"} {
			v, ok := recordValue(rec, col)
			if !ok || math.IsNaN(v) {
				missing = true
				break
			}
			vals[col] = v
		}
		if missing {
			continue
		}
		vol, ok := recordValue(rec, "v")
		if !ok || math.IsNaN(vol) {
			vol = 0
		}
		byTime[ts] = Candle{
			OpenTime:  ts,
			CloseTime: ts,
			Open:      vals["o"],
			High:      vals["h"],
			Low:       vals["l"],
			Close:     vals["c"],
			Volume:    vol,
		}
	}
	if !parsedAny {
		return nil, ErrNoTimestamps
	}

	out := make([]Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })
	return out, nil
}

func recordValue(rec Record, canon string) (float64, bool) {
	for k, v := range rec {
		if columnAliases[strings.ToLower(strings.TrimSpace(k))] != canon {
			continue
		}
		return toFloat(v)
	}
	return 0, false
}

func recordTime(rec Record) (int64, bool) {
	for k, v := range rec {
		if columnAliases[strings.ToLower(strings.TrimSpace(k))] != "t" {
			continue
		}
		return parseTimestamp(v)
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// parseTimestamp 接受毫秒/秒整数、time.Time 或常见日期字符串，统一转毫秒。
func parseTimestamp(v any) (int64, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UnixMilli(), true
	case int64:
		return normalizeEpoch(val), true
	case int:
		return normalizeEpoch(int64(val)), true
	case float64:
		return normalizeEpoch(int64(val)), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return normalizeEpoch(n), true
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli(), true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// normalizeEpoch 秒级时间戳升为毫秒（2001 年之后的秒值均小于 1e12）。
func normalizeEpoch(n int64) int64 {
	if n > 0 && n < 1_000_000_000_000 {
		return n * 1000
	}
	return n
}
