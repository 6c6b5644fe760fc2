package config

import (
	"strings"
	"time"

	"tplan/internal/levels"
)

// Config 是 tplan 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Yahoo    YahooConfig    `mapstructure:"yahoo"`
	Levels   levels.Config  `mapstructure:"levels"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Preset   PresetConfig   `mapstructure:"preset"`
	Store    StoreConfig    `mapstructure:"store"`
	Notes    NotesConfig    `mapstructure:"notes"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogPath  string `mapstructure:"log_path"`
}

// YahooConfig 行情拉取参数。BaseURL 留空用生产端点。
type YahooConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	Range           string `mapstructure:"range"`
	Interval        string `mapstructure:"interval"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	QuoteTTLSeconds int    `mapstructure:"quote_ttl_seconds"`
}

// Timeout 请求超时。
func (y YahooConfig) Timeout() time.Duration {
	return time.Duration(y.TimeoutSeconds) * time.Second
}

// QuoteTTL 最新价缓存时长。
func (y YahooConfig) QuoteTTL() time.Duration {
	return time.Duration(y.QuoteTTLSeconds) * time.Second
}

// EngineConfig 动态计划的资金与市场默认值，请求里给了就覆盖。
type EngineConfig struct {
	AccountEquity float64 `mapstructure:"account_equity"`
	RiskPct       float64 `mapstructure:"risk_pct"`
	TickSize      float64 `mapstructure:"tick_size"`
	LotSize       int     `mapstructure:"lot_size"`
}

// PipelineConfig 各 stage 的超时。
type PipelineConfig struct {
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds"`
	StepTimeoutSeconds  int `mapstructure:"step_timeout_seconds"`
}

func (p PipelineConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

func (p PipelineConfig) StepTimeout() time.Duration {
	return time.Duration(p.StepTimeoutSeconds) * time.Second
}

// PresetConfig 指向 regime 预设 YAML，文件不存在时引擎用内置表。
type PresetConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig 计划流水的 sqlite 路径。
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// NotesConfig 计划推送凭据，token 留空则不构建推送客户端。
type NotesConfig struct {
	Token          string `mapstructure:"token"`
	DatabaseID     string `mapstructure:"database_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (n NotesConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// keySet 记录配置文件里显式设置过的键，应用默认值时跳过。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
