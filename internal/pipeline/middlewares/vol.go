package middlewares

import (
	"context"
	"fmt"
	"time"

	"tplan/internal/pipeline"
	"tplan/internal/vol"
)

// Vol stage 2 非关键步骤：ATR 与相对成交量。
type Vol struct {
	atrPeriod int
	volWindow int
	timeout   time.Duration
}

func NewVol(atrPeriod, volWindow int, timeout time.Duration) *Vol {
	return &Vol{atrPeriod: atrPeriod, volWindow: volWindow, timeout: timeout}
}

func (m *Vol) Meta() pipeline.Meta {
	return pipeline.Meta{Name: "vol", Stage: 2, Critical: false, Timeout: m.timeout}
}

func (m *Vol) Handle(ctx context.Context, tc *pipeline.TickerContext) error {
	candles := tc.Candles()
	if len(candles) == 0 {
		return fmt.Errorf("no candles in context")
	}
	metrics, err := vol.Compute(candles, m.atrPeriod, m.volWindow)
	if err != nil {
		return err
	}
	tc.SetVol(metrics)
	return nil
}
