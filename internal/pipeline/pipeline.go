// Package pipeline 按 stage 调度一组分析步骤：
// 取数（关键）→ 结构位 → 趋势/波动并行。关键步骤失败中止，
// 非关键失败降级成 warning 继续跑。
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tplan/internal/logger"
)

// Middleware 描述一个分析步骤。
type Middleware interface {
	Meta() Meta
	Handle(ctx context.Context, tc *TickerContext) error
}

// Meta 提供调度所需元信息。同 Stage 的步骤并行执行。
type Meta struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
}

// StepError 封装步骤的失败信息。
type StepError struct {
	Step     string
	Stage    int
	Critical bool
	Err      error
}

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Step
	}
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Pipeline 按 stage 归类的步骤集合。
type Pipeline struct {
	name   string
	stages [][]Middleware
}

// New 创建 Pipeline，并按 Stage 升序归类步骤。
func New(name string, middlewares ...Middleware) *Pipeline {
	stageMap := make(map[int][]Middleware)
	for _, mw := range middlewares {
		if mw == nil {
			continue
		}
		meta := mw.Meta()
		stageMap[meta.Stage] = append(stageMap[meta.Stage], mw)
	}
	keys := make([]int, 0, len(stageMap))
	for st := range stageMap {
		keys = append(keys, st)
	}
	sort.Ints(keys)
	stages := make([][]Middleware, 0, len(keys))
	for _, st := range keys {
		stages = append(stages, stageMap[st])
	}
	return &Pipeline{name: name, stages: stages}
}

// Run 逐 stage 执行；关键步骤报错立即返回。
func (p *Pipeline) Run(ctx context.Context, tc *TickerContext) error {
	if tc == nil {
		return fmt.Errorf("nil ticker context")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, stage := range p.stages {
		if err := p.runStage(ctx, tc, stage); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, tc *TickerContext, stage []Middleware) error {
	if len(stage) == 0 {
		return nil
	}
	group, stageCtx := errgroup.WithContext(ctx)
	warnCh := make(chan *StepError, len(stage))
	for _, mw := range stage {
		mw := mw
		group.Go(func() error {
			meta := mw.Meta()
			runCtx := stageCtx
			var cancel context.CancelFunc
			if meta.Timeout > 0 {
				runCtx, cancel = context.WithTimeout(stageCtx, meta.Timeout)
				defer cancel()
			}
			err := mw.Handle(runCtx, tc)
			if err == nil {
				return nil
			}
			sErr := &StepError{
				Step:     meta.Name,
				Stage:    meta.Stage,
				Critical: meta.Critical,
				Err:      err,
			}
			if meta.Critical {
				return sErr
			}
			select {
			case warnCh <- sErr:
			default:
			}
			return nil
		})
	}
	err := group.Wait()
	close(warnCh)
	for warn := range warnCh {
		tc.AddWarning(warn.Error())
		logger.Warnf("[pipeline] %s %s", p.name, warn.Error())
	}
	if err == nil {
		return nil
	}
	tc.AddWarning(err.Error())
	return err
}
