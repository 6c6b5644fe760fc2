package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timeframe 描述 levels 引擎支持的聚合周期。
// 周线按自然周聚合、以周五收束（右闭右标），与日内周期的毫秒网格对齐不同。
type Timeframe struct {
	Code     string
	Duration time.Duration
	Weekly   bool
}

var supportedTimeframes = map[string]Timeframe{
	"W":   {Code: "W", Duration: 7 * 24 * time.Hour, Weekly: true},
	"D":   {Code: "D", Duration: 24 * time.Hour},
	"4H":  {Code: "4H", Duration: 4 * time.Hour},
	"1H":  {Code: "1H", Duration: time.Hour},
	"30m": {Code: "30m", Duration: 30 * time.Minute},
}

// ParseTimeframe 返回标准化周期定义；不支持的编码属于数据错误。
func ParseTimeframe(code string) (Timeframe, error) {
	key := strings.TrimSpace(code)
	if tf, ok := supportedTimeframes[key]; ok {
		return tf, nil
	}
	// 容错大小写写法（"w"、"d"、"30M"）
	for k, tf := range supportedTimeframes {
		if strings.EqualFold(k, key) {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("unsupported timeframe: %s", code)
}

// SupportedTimeframes 返回所有受支持的周期编码（排序后）。
func SupportedTimeframes() []string {
	keys := make([]string, 0, len(supportedTimeframes))
	for k := range supportedTimeframes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// alignBucketEnd 返回 ts 所属右闭桶的桶尾；恰落在边界上的时间戳
// 归入以它收束的前一个桶。
func alignBucketEnd(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	rem := ts % step
	if rem < 0 {
		rem += step
	}
	if rem == 0 {
		return ts
	}
	return ts - rem + step
}

// weekBucketEnd 返回时间戳所属周线桶的桶尾（该周周五 24:00 UTC 的毫秒值）。
// 周六/周日的数据归入下一个周五。
func weekBucketEnd(ts int64) int64 {
	t := time.UnixMilli(ts).UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	friday := day.AddDate(0, 0, offset)
	return friday.AddDate(0, 0, 1).UnixMilli()
}

// Resample 将基础序列聚合到目标周期：open=首、high=最大、low=最小、close=末、volume=和。
// 桶为右闭右标，恰在桶边界上的时间戳归入以它收束的前一个桶。
// 输入须已按时间升序（NormalizeSeries 的输出满足）。
func Resample(candles []Candle, code string) ([]Candle, error) {
	tf, err := ParseTimeframe(code)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}

	step := tf.Duration.Milliseconds()
	var (
		out    []Candle
		cur    Candle
		curKey int64 = -1
	)
	flush := func() {
		if curKey >= 0 {
			out = append(out, cur)
		}
	}
	for _, c := range candles {
		var key int64
		if tf.Weekly {
			key = weekBucketEnd(c.OpenTime)
		} else {
			key = alignBucketEnd(c.OpenTime, step)
		}
		if key != curKey {
			flush()
			curKey = key
			cur = Candle{
				OpenTime:  key - step,
				CloseTime: key,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			}
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	flush()
	return out, nil
}
