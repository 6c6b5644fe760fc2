package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tplan/internal/config"
	"tplan/internal/engine"
	"tplan/internal/gateway/yahoo"
	"tplan/internal/levels"
	"tplan/internal/market"
	"tplan/internal/notes"
	"tplan/internal/pipeline"
	"tplan/internal/store/planstore"
	planhttp "tplan/internal/transport/http"
)

type fakeSource struct {
	candles []market.Candle
	price   float64
}

func (f *fakeSource) FetchOHLC(_ context.Context, _, _, _ string) ([]market.Candle, error) {
	return f.candles, nil
}

func (f *fakeSource) LastPrice(_ context.Context, _ string) (yahoo.PriceResult, error) {
	return yahoo.PriceResult{Symbol: "AAPL", Price: f.price, AsOf: time.Now()}, nil
}

func trendingCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	base := int64(1_700_000_000_000)
	price := 100.0
	for i := range out {
		open := price
		price *= 1.002
		out[i] = market.Candle{
			OpenTime:  base + int64(i)*1_800_000,
			CloseTime: base + int64(i+1)*1_800_000,
			Open:      open,
			High:      price * 1.004,
			Low:       open * 0.996,
			Close:     price,
			Volume:    1000 + float64(i%5)*100,
		}
	}
	return out
}

func newTestService(t *testing.T, src *fakeSource) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Cfg: config.Default(), Source: src})
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceConfig{Source: &fakeSource{}})
	assert.Error(t, err)
	_, err = NewService(ServiceConfig{Cfg: config.Default()})
	assert.Error(t, err)
}

func TestServiceLevels(t *testing.T) {
	candles := trendingCandles(400)
	svc := newTestService(t, &fakeSource{candles: candles, price: candles[len(candles)-1].Close})

	resp, err := svc.Levels(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", resp.Ticker)
	assert.Greater(t, resp.Price, 0.0)
	assert.NotEmpty(t, resp.Sheet)
	assert.NotEmpty(t, resp.Levels)
	assert.Contains(t, resp.Markdown, "AAPL")
	require.NotNil(t, resp.Trend)
	assert.Equal(t, "UP", resp.Trend.Direction)
	require.NotNil(t, resp.Vol)
	assert.Greater(t, resp.Vol.ATR, 0.0)
}

func TestServicePlanAuto(t *testing.T) {
	candles := trendingCandles(400)
	svc := newTestService(t, &fakeSource{candles: candles, price: candles[len(candles)-1].Close})

	resp, err := svc.PlanAuto(context.Background(), planhttp.AutoPlanRequest{Ticker: "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", resp.Ticker)
	assert.Equal(t, "long", resp.Side)
	// 上升趋势下价格下方有结构位，回踩策略应当给得出方案
	require.True(t, resp.OK, "reason=%s", resp.Reason)
	require.NotNil(t, resp.Result)
	assert.NotEmpty(t, resp.Result.Primary.Entries)
	assert.Greater(t, resp.Result.Primary.Stop, 0.0)
}

func TestServicePlanAutoBadSide(t *testing.T) {
	svc := newTestService(t, &fakeSource{candles: trendingCandles(100), price: 100})
	_, err := svc.PlanAuto(context.Background(), planhttp.AutoPlanRequest{Ticker: "AAPL", Side: "sideways"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "side must be long or short")
}

func TestServicePlanDynamic(t *testing.T) {
	candles := trendingCandles(400)
	svc := newTestService(t, &fakeSource{candles: candles, price: candles[len(candles)-1].Close})

	resp, err := svc.PlanDynamic(context.Background(), planhttp.DynamicPlanRequest{Ticker: "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", resp.Ticker)
	assert.Equal(t, "long", resp.Side)
	assert.Greater(t, resp.Entry, 0.0)
	require.NotNil(t, resp.Vol)
	assert.NotEmpty(t, resp.Result.Regime)
	if !resp.Result.OK {
		assert.NotEmpty(t, resp.Result.Reason)
	}
}

func TestServicePlanDynamicUnknownRegime(t *testing.T) {
	svc := newTestService(t, &fakeSource{candles: trendingCandles(100), price: 100})
	_, err := svc.PlanDynamic(context.Background(), planhttp.DynamicPlanRequest{Ticker: "AAPL", Regime: "wild2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown regime")
}

func TestParseRegime(t *testing.T) {
	regime, err := parseRegime("")
	require.NoError(t, err)
	assert.Empty(t, regime)

	regime, err = parseRegime(" HOT ")
	require.NoError(t, err)
	assert.Equal(t, "hot", regime)

	_, err = parseRegime("frenzy")
	assert.Error(t, err)
}

func TestRecordPlan(t *testing.T) {
	notesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"page-123"}`))
	}))
	defer notesSrv.Close()

	notesClient, err := notes.New(notes.Config{Token: "tok", DatabaseID: "db", BaseURL: notesSrv.URL})
	require.NoError(t, err)

	journal, err := planstore.New(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	defer journal.Close()

	svc := newTestService(t, &fakeSource{candles: trendingCandles(100), price: 100})
	svc.notes = notesClient
	svc.journal = journal

	tc := pipeline.NewContext("AAPL")
	tc.SetLevels([]levels.Row{{TF: "D", Bottom: 95, Mid: 97.5, Top: 100}}, nil)
	result := engine.PlanResult{
		OK: true, Regime: "normal",
		Entry: 100, Stop: 98, T1: 103.4, T2: 106,
		R1: 1.7, R2: 3.0, Shares: 500, RiskAmount: 1000,
		Notes: []string{"Move stop to breakeven after a close beyond T1 on your decision timeframe."},
	}
	resp := planhttp.DynamicPlanResponse{Ticker: "AAPL", Side: "long"}

	pageID := svc.recordPlan(context.Background(), tc, result, &resp)
	assert.Equal(t, "page-123", pageID)
	assert.Empty(t, resp.Warnings)

	saved, err := journal.LatestByTicker(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "page-123", saved.PageID)
	assert.InDelta(t, 100, saved.Entry, 1e-9)
}

func TestRecordPlanNotesFailureDegrades(t *testing.T) {
	notesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"validation failed"}`))
	}))
	defer notesSrv.Close()

	notesClient, err := notes.New(notes.Config{Token: "tok", DatabaseID: "db", BaseURL: notesSrv.URL})
	require.NoError(t, err)

	svc := newTestService(t, &fakeSource{candles: trendingCandles(100), price: 100})
	svc.notes = notesClient

	tc := pipeline.NewContext("AAPL")
	resp := planhttp.DynamicPlanResponse{Ticker: "AAPL", Side: "long"}
	pageID := svc.recordPlan(context.Background(), tc, engine.PlanResult{OK: true, Entry: 100, Stop: 98}, &resp)

	assert.Empty(t, pageID)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "notes push failed")
}

func TestEngineLevelsBuckets(t *testing.T) {
	flat := []levels.Level{
		{Timeframe: "W", Price: 90, Kind: levels.KindSupport},
		{Timeframe: "W-LOW", Price: 85, Kind: levels.KindSupport},
		{Timeframe: "D", Price: 110, Kind: levels.KindResistance},
		{Timeframe: "4H", Price: 98, Kind: levels.KindSupport},
		{Timeframe: "30m", Price: 104, Kind: levels.KindResistance},
		{Timeframe: "D", Price: 100, Kind: levels.KindPivot}, // pivot 跳过
	}
	got := engineLevels(flat)

	assert.Equal(t, []float64{90, 85}, got.W.Support)
	assert.Equal(t, []float64{110}, got.D.Resistance)
	assert.Equal(t, []float64{98}, got.H4.Support)
	assert.Equal(t, []float64{104}, got.H4.Resistance)
	assert.Empty(t, got.D.Support)
}

func TestParseSide(t *testing.T) {
	long, err := parseSide("")
	require.NoError(t, err)
	assert.True(t, long)

	long, err = parseSide(" SHORT ")
	require.NoError(t, err)
	assert.False(t, long)

	_, err = parseSide("both")
	assert.Error(t, err)
}

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "plans.db")
	cfg.Preset.Path = "" // 没有预设文件，用内置表

	a, err := NewApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, ":9980", a.server.Addr())

	_, err = NewApp(nil)
	assert.Error(t, err)
}
