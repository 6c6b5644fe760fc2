// Package app 负责应用级编排：配置→依赖构建→HTTP 服务启动。
package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tplan/internal/config"
	"tplan/internal/gateway/yahoo"
	"tplan/internal/logger"
	"tplan/internal/notes"
	"tplan/internal/preset"
	"tplan/internal/store/planstore"
	planhttp "tplan/internal/transport/http"
)

// App 持有全部运行期组件。
type App struct {
	cfg     *config.Config
	server  *planhttp.Server
	presets *preset.Registry
	journal *planstore.Store
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	source := yahoo.New(yahoo.Config{
		BaseURL:  cfg.Yahoo.BaseURL,
		Timeout:  cfg.Yahoo.Timeout(),
		QuoteTTL: cfg.Yahoo.QuoteTTL(),
	})

	// preset 文件可选，缺了就用引擎内置表
	var presets *preset.Registry
	if path := strings.TrimSpace(cfg.Preset.Path); path != "" {
		reg, err := preset.NewRegistry(path)
		if err != nil {
			logger.Warnf("[app] regime presets unavailable (%s): %v", path, err)
		} else {
			presets = reg
		}
	}

	journal, err := planstore.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open plan journal: %w", err)
	}

	var notesClient *notes.Client
	if cfg.Notes.Token != "" {
		notesClient, err = notes.New(notes.Config{
			Token:      cfg.Notes.Token,
			DatabaseID: cfg.Notes.DatabaseID,
			Timeout:    cfg.Notes.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("build notes client: %w", err)
		}
	}

	svc, err := NewService(ServiceConfig{
		Cfg:     cfg,
		Source:  source,
		Presets: presets,
		Journal: journal,
		Notes:   notesClient,
	})
	if err != nil {
		return nil, err
	}

	server, err := planhttp.NewServer(planhttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Service: svc,
	})
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, server: server, presets: presets, journal: journal}, nil
}

// Run 启动 HTTP 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("[app] env=%s listening=%s", a.cfg.App.Env, a.server.Addr())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()

	if a.journal != nil {
		if cerr := a.journal.Close(); cerr != nil {
			logger.Warnf("[app] closing plan journal: %v", cerr)
		}
	}
	return err
}
