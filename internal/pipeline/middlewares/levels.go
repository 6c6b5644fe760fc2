package middlewares

import (
	"context"
	"fmt"
	"time"

	"tplan/internal/levels"
	"tplan/internal/pipeline"
)

// Levels stage 1 关键步骤：从基础序列算多时间框结构位并扁平化。
type Levels struct {
	cfg     levels.Config
	timeout time.Duration
}

func NewLevels(cfg levels.Config, timeout time.Duration) *Levels {
	return &Levels{cfg: cfg, timeout: timeout}
}

func (m *Levels) Meta() pipeline.Meta {
	return pipeline.Meta{Name: "levels", Stage: 1, Critical: true, Timeout: m.timeout}
}

func (m *Levels) Handle(ctx context.Context, tc *pipeline.TickerContext) error {
	candles := tc.Candles()
	if len(candles) == 0 {
		return fmt.Errorf("no candles in context")
	}
	rows, err := levels.ComputeSheet(candles, m.cfg)
	if err != nil {
		return fmt.Errorf("compute levels: %w", err)
	}
	tc.SetLevels(rows, levels.Flatten(rows, m.cfg.MaxLevels))
	return nil
}
