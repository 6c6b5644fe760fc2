package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) string {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func TestNormalizeSeries(t *testing.T) {
	t.Run("case-insensitive aliases", func(t *testing.T) {
		recs := []Record{
			{"Date": day(3), "Open": 10.0, "HIGH": 12.0, "low": 9.0, "Close": 11.0, "Volume": 100.0},
			{"Date": day(4), "Open": 11.0, "HIGH": 13.0, "low": 10.0, "Close": 12.0, "Volume": 200.0},
		}
		candles, err := NormalizeSeries(recs)
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, 10.0, candles[0].Open)
		assert.Equal(t, 13.0, candles[1].High)
	})

	t.Run("missing column is a data error", func(t *testing.T) {
		recs := []Record{{"date": day(3), "open": 10.0, "high": 12.0, "low": 9.0}}
		_, err := NormalizeSeries(recs)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("unparseable timestamps are a data error", func(t *testing.T) {
		recs := []Record{{"date": "not-a-date", "o": 1.0, "h": 2.0, "l": 0.5, "c": 1.5}}
		_, err := NormalizeSeries(recs)
		assert.ErrorIs(t, err, ErrNoTimestamps)
	})

	t.Run("rows with missing ohlc dropped, order ascending, duplicates collapse", func(t *testing.T) {
		recs := []Record{
			{"date": day(5), "o": 3.0, "h": 4.0, "l": 2.0, "c": 3.5},
			{"date": day(3), "o": 1.0, "h": 2.0, "l": 0.5, "c": 1.5},
			{"date": day(4), "o": 2.0, "h": 3.0, "l": 1.5, "c": nil},
			{"date": day(3), "o": 1.1, "h": 2.1, "l": 0.6, "c": 1.6},
		}
		candles, err := NormalizeSeries(recs)
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, 1.1, candles[0].Open) // 后出现的同刻行覆盖前者
		assert.True(t, candles[0].OpenTime < candles[1].OpenTime)
	})
}

func TestParseTimeframe(t *testing.T) {
	for _, code := range []string{"W", "D", "4H", "1H", "30m"} {
		_, err := ParseTimeframe(code)
		assert.NoError(t, err, code)
	}
	_, err := ParseTimeframe("15m")
	assert.Error(t, err)
}

func TestResampleDaily(t *testing.T) {
	base := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC) // 周一
	var candles []Candle
	// 两天、每天两根 12h 粒度的合成 K 线
	vals := []struct{ o, h, l, c, v float64 }{
		{10, 12, 9, 11, 100},
		{11, 15, 10, 14, 150},
		{14, 16, 13, 15, 120},
		{15, 17, 12, 13, 80},
	}
	for i, v := range vals {
		ts := base.Add(time.Duration(i) * 12 * time.Hour).UnixMilli()
		candles = append(candles, Candle{OpenTime: ts, CloseTime: ts, Open: v.o, High: v.h, Low: v.l, Close: v.c, Volume: v.v})
	}

	daily, err := Resample(candles, "D")
	require.NoError(t, err)
	// 右闭桶：恰在 0 点的 K 线收束前一个桶，首尾各自成桶
	require.Len(t, daily, 3)
	assert.Equal(t, 10.0, daily[0].Open)
	assert.Equal(t, 11.0, daily[0].Close)
	assert.Equal(t, 11.0, daily[1].Open)
	assert.Equal(t, 16.0, daily[1].High)
	assert.Equal(t, 10.0, daily[1].Low)
	assert.Equal(t, 15.0, daily[1].Close)
	assert.Equal(t, 270.0, daily[1].Volume)
	assert.Equal(t, 15.0, daily[2].Open)
	// 不变式：high >= max(open, close)，low <= min(open, close)
	for _, bar := range daily {
		assert.GreaterOrEqual(t, bar.High, bar.BodyHigh())
		assert.LessOrEqual(t, bar.Low, bar.BodyLow())
	}
}

func TestResampleBoundaryBarClosesBucket(t *testing.T) {
	base := time.Date(2024, 6, 3, 4, 30, 0, 0, time.UTC)
	var candles []Candle
	// 04:30 起的 8 根 30m K 线，第 8 根恰好开在 08:00 的 4H 边界上
	for i := 0; i < 8; i++ {
		ts := base.Add(time.Duration(i) * 30 * time.Minute).UnixMilli()
		px := float64(100 + i)
		candles = append(candles, Candle{OpenTime: ts, CloseTime: ts, Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 1})
	}

	h4, err := Resample(candles, "4H")
	require.NoError(t, err)
	require.Len(t, h4, 1)
	// 全部落在 (04:00, 08:00] 桶里，08:00 那根不开新桶
	assert.Equal(t, 100.0, h4[0].Open)
	assert.Equal(t, 107.0, h4[0].Close)
	assert.Equal(t, 8.0, h4[0].Volume)
	assert.Equal(t, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC).UnixMilli(), h4[0].CloseTime)
}

func TestResampleWeeklyEndsFriday(t *testing.T) {
	// 周四~下周一的日线应切成两个周桶（周五收束，周末归下周）
	days := []int{6, 7, 8, 10} // 2024-06-06 四、07 五、08 六、10 一
	var candles []Candle
	for i, d := range days {
		ts := time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC).UnixMilli()
		px := float64(100 + i)
		candles = append(candles, Candle{OpenTime: ts, CloseTime: ts, Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 1})
	}
	weekly, err := Resample(candles, "W")
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, 100.0, weekly[0].Open)
	assert.Equal(t, 101.0, weekly[0].Close) // 周五收盘
	assert.Equal(t, 102.0, weekly[1].Open)  // 周六起归入下一周
}

func TestSwingHighs(t *testing.T) {
	highs := []float64{10, 12, 10, 14, 11, 16, 12, 13, 9}
	var candles []Candle
	for i, h := range highs {
		candles = append(candles, Candle{OpenTime: int64(i) * 1000, High: h, Low: h - 2, Open: h - 1, Close: h - 1})
	}
	// 最后一根（9）不参与；峰为 12、14、16
	got := SwingHighs(candles, 3, 200)
	assert.Equal(t, []float64{16, 14, 12}, got)

	// k=2 只保留最近两个峰
	got = SwingHighs(candles, 2, 200)
	assert.Equal(t, []float64{16, 14}, got)

	assert.Nil(t, SwingHighs(candles[:2], 3, 200))
}
