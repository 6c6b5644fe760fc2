package vol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tplan/internal/market"
)

func flatCandles(n int, lastVolume float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1) * 60_000,
			Open:      100, High: 102, Low: 98, Close: 100,
			Volume: 1000,
		}
	}
	candles[n-1].Volume = lastVolume
	return candles
}

func TestComputeConstantRange(t *testing.T) {
	m, err := Compute(flatCandles(30, 2000), DefaultATRPeriod, DefaultVolWindow)
	require.NoError(t, err)

	// 每根真实波幅恒为 4，Wilder 平滑后仍是 4。
	assert.InDelta(t, 4.0, m.ATR, 1e-9)
	assert.InDelta(t, 0.04, m.ATRPct, 1e-9)
	assert.InDelta(t, 2.0, m.RVol, 1e-9)
}

func TestComputeNotEnoughData(t *testing.T) {
	_, err := Compute(flatCandles(10, 1000), DefaultATRPeriod, DefaultVolWindow)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestRelativeVolume(t *testing.T) {
	assert.Equal(t, 0.0, relativeVolume(nil, 20))
	assert.Equal(t, 0.0, relativeVolume([]float64{100}, 20))
	// 均量为零无从比较
	assert.Equal(t, 0.0, relativeVolume([]float64{0, 0, 500}, 20))

	// 只取此前 window 根：更早的异常量不参与
	vols := []float64{99999, 100, 100, 300}
	assert.InDelta(t, 3.0, relativeVolume(vols, 2), 1e-9)
}
