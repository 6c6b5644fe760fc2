package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  env: prod
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, "60d", cfg.Yahoo.Range)
	assert.Equal(t, "30m", cfg.Yahoo.Interval)
	assert.Equal(t, 15*time.Second, cfg.Yahoo.QuoteTTL())
	assert.InDelta(t, 1_000_000, cfg.Engine.AccountEquity, 1e-9)
	assert.InDelta(t, 0.01, cfg.Engine.RiskPct, 1e-12)
	assert.Equal(t, 1, cfg.Engine.LotSize)
	assert.Equal(t, "configs/regime_presets.yaml", cfg.Preset.Path)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.StepTimeout())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  log_level: debug
  http_addr: ":8088"
engine:
  account_equity: 5000000
  risk_pct: 0.005
  tick_size: 0.5
  lot_size: 100
levels:
  max_levels: 40
  include_m30: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":8088", cfg.App.HTTPAddr)
	assert.InDelta(t, 5_000_000, cfg.Engine.AccountEquity, 1e-9)
	assert.InDelta(t, 0.005, cfg.Engine.RiskPct, 1e-12)
	assert.InDelta(t, 0.5, cfg.Engine.TickSize, 1e-12)
	assert.Equal(t, 100, cfg.Engine.LotSize)
	assert.Equal(t, 40, cfg.Levels.MaxLevels)
	assert.False(t, cfg.Levels.IncludeM30)
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
engine:
  account_equity: 2000000
store:
  path: /tmp/base.db
`)
	main := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
store:
  path: /tmp/override.db
`)
	cfg, err := Load(main)
	require.NoError(t, err)

	assert.InDelta(t, 2_000_000, cfg.Engine.AccountEquity, 1e-9)
	// 主文件在 include 之后合并，同键覆盖
	assert.Equal(t, "/tmp/override.db", cfg.Store.Path)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	pathA := filepath.Join(dir, "a.yaml")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(pathA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad log level", "app:\n  log_level: verbose\n", "app.log_level"},
		{"risk pct too high", "engine:\n  risk_pct: 1.5\n", "engine.risk_pct"},
		{"notes token without db", "notes:\n  token: secret\n", "notes.database_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "config.yaml", tc.yaml)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, validate(cfg))
	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "/data/db/plans.db", cfg.Store.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
