package trend

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampCloses(n int, start, growth float64) []float64 {
	closes := make([]float64, n)
	price := start
	for i := range closes {
		closes[i] = price
		price *= 1 + growth
	}
	return closes
}

func f64(v float64) *float64 { return &v }

func TestComputeUptrend(t *testing.T) {
	closes := rampCloses(80, 100, 0.01)
	res, err := Compute(closes, Signals{}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "UP", res.Direction)
	assert.GreaterOrEqual(t, res.Score, 80.0)
	assert.Equal(t, "Strong Uptrend", res.Label)
	// 没有 ADX 输入时不可能判成 Stable
	assert.Equal(t, "Unstable Up", res.TrendType)
	assert.Contains(t, res.EMAStack, ">")
}

func TestComputeDowntrend(t *testing.T) {
	closes := rampCloses(80, 500, -0.01)
	res, err := Compute(closes, Signals{}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "DOWN", res.Direction)
	assert.Equal(t, "Strong Downtrend", res.Label)
	assert.Contains(t, res.EMAStack, "<")
}

func TestComputeFlat(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100
	}
	res, err := Compute(closes, Signals{}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "CHOP", res.Direction)
	assert.Equal(t, "No Clear Trend", res.Label)
	assert.Equal(t, "Chop", res.TrendType)
	assert.Equal(t, "NORMAL", res.VolState)
	assert.Contains(t, res.EMAStack, "mixed")
}

func TestComputeWithSignals(t *testing.T) {
	closes := rampCloses(80, 100, 0.01)
	res, err := Compute(closes, Signals{RSI: f64(90), MACDHist: f64(3.0), ADX: f64(40)}, DefaultConfig())
	require.NoError(t, err)

	// RSI/MACD/ADX 全满分，合成分只受慢线斜率项拖累。
	assert.GreaterOrEqual(t, res.Score, 90.0)
	assert.Equal(t, "Stable Up", res.TrendType)
	assert.Equal(t, "Strong", res.MomentumLabel)
	assert.InDelta(t, 100, res.Components["momentum"], 1e-6)
	assert.InDelta(t, 100, res.Components["adx"], 1e-6)
}

func TestComputeNotEnoughData(t *testing.T) {
	_, err := Compute(rampCloses(10, 100, 0.01), Signals{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestMomentumScore(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.0, momentumScore(nil, nil, cfg))
	// RSI 80 偏离 30/40 = 0.75
	assert.InDelta(t, 0.75, momentumScore(f64(80), nil, cfg), 1e-9)
	// |hist| 1.0 / 2.0 = 0.5
	assert.InDelta(t, 0.5, momentumScore(nil, f64(1.0), cfg), 1e-9)
	// 双输入 0.6*0.5 + 0.4*0.75 = 0.6
	assert.InDelta(t, 0.6, momentumScore(f64(80), f64(1.0), cfg), 1e-9)

	assert.Equal(t, "Medium", momentumLabel(0.6))
	assert.Equal(t, "Weak", momentumLabel(0.1))
	assert.Equal(t, "Strong", momentumLabel(0.9))
}

func TestADXScore(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.0, adxScore(nil, cfg))
	assert.Equal(t, 0.0, adxScore(f64(5), cfg))
	assert.Equal(t, 1.0, adxScore(f64(40), cfg))
	assert.InDelta(t, 0.5, adxScore(f64(22.5), cfg), 1e-9)
}

func TestComment(t *testing.T) {
	res := &Result{
		Label: "Strong Uptrend", Score: 87.3, Direction: "UP",
		MomentumLabel: "Strong", VolState: "NORMAL",
		EMAStack: "EMA8(110.00) > EMA21(108.00) > EMA50(105.00)",
	}
	lines := strings.Split(res.Comment(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, res.EMAStack, lines[0])
	assert.Contains(t, lines[1], "Trend: Strong Uptrend")
	assert.Contains(t, lines[1], "score 87")
}

func TestStddev(t *testing.T) {
	assert.Equal(t, 0.0, stddev(nil))
	assert.InDelta(t, 2.0, stddev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.True(t, math.Abs(stddev([]float64{1, 1, 1})) < 1e-12)
}
