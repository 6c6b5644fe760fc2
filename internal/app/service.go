package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tplan/internal/autoplan"
	"tplan/internal/config"
	"tplan/internal/engine"
	"tplan/internal/levels"
	"tplan/internal/logger"
	"tplan/internal/notes"
	"tplan/internal/pipeline"
	"tplan/internal/pipeline/middlewares"
	"tplan/internal/preset"
	"tplan/internal/store/planstore"
	planhttp "tplan/internal/transport/http"
	"tplan/internal/trend"
)

// Service 是 HTTP 层背后的实际规划服务：跑分析流水线，再调策略/风控引擎。
type Service struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	presets  *preset.Registry
	journal  *planstore.Store
	notes    *notes.Client
}

// ServiceConfig Service 的依赖项；Presets/Journal/Notes 均可为空。
type ServiceConfig struct {
	Cfg     *config.Config
	Source  middlewares.CandleSource
	Presets *preset.Registry
	Journal *planstore.Store
	Notes   *notes.Client
}

// NewService 构建规划服务。
func NewService(sc ServiceConfig) (*Service, error) {
	if sc.Cfg == nil {
		return nil, errors.New("service requires config")
	}
	if sc.Source == nil {
		return nil, errors.New("service requires a candle source")
	}
	p := pipeline.New("analysis",
		middlewares.NewCandles(sc.Source, sc.Cfg.Yahoo.Range, sc.Cfg.Yahoo.Interval, sc.Cfg.Pipeline.FetchTimeout()),
		middlewares.NewLevels(sc.Cfg.Levels, sc.Cfg.Pipeline.StepTimeout()),
		middlewares.NewTrend(trend.DefaultConfig(), sc.Cfg.Pipeline.StepTimeout()),
		middlewares.NewVol(0, 0, sc.Cfg.Pipeline.StepTimeout()),
	)
	return &Service{
		cfg:      sc.Cfg,
		pipeline: p,
		presets:  sc.Presets,
		journal:  sc.Journal,
		notes:    sc.Notes,
	}, nil
}

func (s *Service) analyze(ctx context.Context, ticker string) (*pipeline.TickerContext, error) {
	tc := pipeline.NewContext(ticker)
	if tc.Ticker == "" {
		return nil, errors.New("ticker is required")
	}
	if err := s.pipeline.Run(ctx, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// Levels 结构位查询。
func (s *Service) Levels(ctx context.Context, ticker string) (planhttp.LevelsResponse, error) {
	tc, err := s.analyze(ctx, ticker)
	if err != nil {
		return planhttp.LevelsResponse{}, err
	}
	sheet := tc.Sheet()
	resp := planhttp.LevelsResponse{
		Ticker:   tc.Ticker,
		Price:    tc.Price(),
		Sheet:    sheet,
		Levels:   tc.Levels(),
		Markdown: levels.MarkdownTable(sheet, tc.Ticker, tc.Ticker),
		Warnings: tc.Warnings(),
	}
	resp.Trend = trendSummary(tc)
	resp.Vol = tc.Vol()
	return resp, nil
}

// PlanAuto 策略自动方案：拉平结构位后跑策略序列。
func (s *Service) PlanAuto(ctx context.Context, req planhttp.AutoPlanRequest) (planhttp.AutoPlanResponse, error) {
	isLong, err := parseSide(req.Side)
	if err != nil {
		return planhttp.AutoPlanResponse{}, err
	}
	tc, err := s.analyze(ctx, req.Ticker)
	if err != nil {
		return planhttp.AutoPlanResponse{}, err
	}
	resp := planhttp.AutoPlanResponse{
		Ticker:   tc.Ticker,
		Side:     sideString(isLong),
		Price:    tc.Price(),
		Warnings: tc.Warnings(),
	}
	result, err := autoplan.ComputeFull(tc.Levels(), tc.Price(), isLong, tc.Trend())
	if err != nil {
		if errors.Is(err, autoplan.ErrNoPlan) {
			resp.Reason = "no strategy produced a plan"
			return resp, nil
		}
		return planhttp.AutoPlanResponse{}, err
	}
	resp.OK = true
	resp.Result = result
	return resp, nil
}

// PlanDynamic 动态风控方案：波动档位 + 结构/ATR 取紧 + 风险定仓。
func (s *Service) PlanDynamic(ctx context.Context, req planhttp.DynamicPlanRequest) (planhttp.DynamicPlanResponse, error) {
	isLong, err := parseSide(req.Side)
	if err != nil {
		return planhttp.DynamicPlanResponse{}, err
	}
	regime, err := parseRegime(req.Regime)
	if err != nil {
		return planhttp.DynamicPlanResponse{}, err
	}
	tc, err := s.analyze(ctx, req.Ticker)
	if err != nil {
		return planhttp.DynamicPlanResponse{}, err
	}
	metrics := tc.Vol()
	if metrics == nil {
		return planhttp.DynamicPlanResponse{}, fmt.Errorf("volatility metrics unavailable: %s", strings.Join(tc.Warnings(), "; "))
	}
	entry := req.Entry
	if entry <= 0 {
		entry = tc.Price()
	}

	side := engine.SideLong
	if !isLong {
		side = engine.SideShort
	}
	opts := engine.Options{
		AccountEquity: req.AccountEquity,
		RiskPct:       req.RiskPct,
		Market: engine.MarketConfig{
			TickSize: req.TickSize,
			LotSize:  req.LotSize,
		},
		Regime: regime,
	}
	if opts.AccountEquity <= 0 {
		opts.AccountEquity = s.cfg.Engine.AccountEquity
	}
	if opts.RiskPct <= 0 {
		opts.RiskPct = s.cfg.Engine.RiskPct
	}
	if opts.Market.TickSize <= 0 {
		opts.Market.TickSize = s.cfg.Engine.TickSize
	}
	if opts.Market.LotSize <= 0 {
		opts.Market.LotSize = s.cfg.Engine.LotSize
	}
	if s.presets != nil {
		opts.Tuning = s.presets.Tuning()
	}

	result := engine.PlanDynamic(entry, side, *metrics, engineLevels(tc.Levels()), opts)
	resp := planhttp.DynamicPlanResponse{
		Ticker:   tc.Ticker,
		Side:     string(side),
		Entry:    entry,
		Vol:      metrics,
		Result:   result,
		Warnings: tc.Warnings(),
	}
	if req.Push && result.OK {
		resp.PageID = s.recordPlan(ctx, tc, result, &resp)
	}
	return resp, nil
}

// recordPlan 推送 notes 并落 journal；两者失败都降级成 warning。
func (s *Service) recordPlan(ctx context.Context, tc *pipeline.TickerContext, result engine.PlanResult, resp *planhttp.DynamicPlanResponse) string {
	var pageID string
	if s.notes != nil {
		rec := notes.Record{
			Ticker:    tc.Ticker,
			Side:      resp.Side,
			Entry:     result.Entry,
			Stop:      result.Stop,
			Target:    result.T1,
			Shares:    result.Shares,
			RMultiple: result.R1,
			Notes:     strings.Join(result.Notes, "\n"),
			Report:    levels.MarkdownTable(tc.Sheet(), tc.Ticker, tc.Ticker),
		}
		id, err := s.notes.Push(ctx, rec)
		if err != nil {
			logger.Warnf("[app] notes push failed for %s: %v", tc.Ticker, err)
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("notes push failed: %v", err))
		} else {
			pageID = id
		}
	}
	if s.journal != nil {
		if _, err := s.journal.SaveResult(ctx, tc.Ticker, result, pageID); err != nil {
			logger.Warnf("[app] journal save failed for %s: %v", tc.Ticker, err)
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("journal save failed: %v", err))
		}
	}
	return pageID
}

// parseRegime 校验显式档位覆盖；留空表示按 ATR%/RVOL 自动判定。
func parseRegime(raw string) (string, error) {
	regime := strings.ToLower(strings.TrimSpace(raw))
	if regime == "" {
		return "", nil
	}
	if _, ok := engine.DefaultTuning()[regime]; !ok {
		return "", fmt.Errorf("unknown regime %q (want calm/normal/hot/wild)", raw)
	}
	return regime, nil
}

func parseSide(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "long":
		return true, nil
	case "short":
		return false, nil
	default:
		return false, fmt.Errorf("side must be long or short, got %q", raw)
	}
}

func sideString(isLong bool) string {
	if isLong {
		return string(engine.SideLong)
	}
	return string(engine.SideShort)
}

func trendSummary(tc *pipeline.TickerContext) *planhttp.TrendSummary {
	tr := tc.Trend()
	if tr == nil {
		return nil
	}
	return &planhttp.TrendSummary{
		Score:         tr.Score,
		Direction:     tr.Direction,
		Label:         tr.Label,
		TrendType:     tr.TrendType,
		VolState:      tr.VolState,
		MomentumLabel: tr.MomentumLabel,
		Comment:       tr.Comment(),
	}
}

// engineLevels 把打平的结构位按周期和类别装进引擎的三框结构。
// pivot 不参与止损/目标选择，跳过；1H/30m 归到 4H 框。
func engineLevels(flat []levels.Level) engine.Levels {
	var out engine.Levels
	for _, lv := range flat {
		var set *engine.LevelSet
		tf := strings.ToUpper(strings.TrimSpace(lv.Timeframe))
		switch {
		case strings.HasPrefix(tf, "W"):
			set = &out.W
		case tf == "D":
			set = &out.D
		default:
			set = &out.H4
		}
		switch lv.Kind {
		case levels.KindSupport:
			set.Support = append(set.Support, lv.Price)
		case levels.KindResistance:
			set.Resistance = append(set.Resistance, lv.Price)
		}
	}
	return out
}
