package config

import "strings"

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9980"
	defaultAppLogPath   = "/data/logs/tplan.log"
	defaultYahooRange   = "60d"
	defaultYahooInt     = "30m"
	defaultYahooTimeout = 12
	defaultYahooTTL     = 15
	defaultEquity       = 1_000_000
	defaultRiskPct      = 0.01
	defaultTickSize     = 0.01
	defaultLotSize      = 1
	defaultFetchTimeout = 15
	defaultStepTimeout  = 10
	defaultPresetPath   = "configs/regime_presets.yaml"
	defaultStorePath    = "/data/db/plans.db"
	defaultNotesTimeout = 10
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Yahoo.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Pipeline.applyDefaults(keys)
	c.Preset.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Notes.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (y *YahooConfig) applyDefaults(keys keySet) {
	if y == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("yahoo.range", &y.Range, defaultYahooRange),
		stringFieldDefault("yahoo.interval", &y.Interval, defaultYahooInt),
		intFieldDefault("yahoo.timeout_seconds", &y.TimeoutSeconds, defaultYahooTimeout),
		intFieldDefault("yahoo.quote_ttl_seconds", &y.QuoteTTLSeconds, defaultYahooTTL),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "engine.account_equity",
			need:  func() bool { return e.AccountEquity <= 0 },
			apply: func() { e.AccountEquity = defaultEquity },
		},
		fieldDefault{
			key:   "engine.risk_pct",
			need:  func() bool { return e.RiskPct <= 0 },
			apply: func() { e.RiskPct = defaultRiskPct },
		},
		fieldDefault{
			key:   "engine.tick_size",
			need:  func() bool { return e.TickSize <= 0 },
			apply: func() { e.TickSize = defaultTickSize },
		},
		intFieldDefault("engine.lot_size", &e.LotSize, defaultLotSize),
	)
}

func (p *PipelineConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("pipeline.fetch_timeout_seconds", &p.FetchTimeoutSeconds, defaultFetchTimeout),
		intFieldDefault("pipeline.step_timeout_seconds", &p.StepTimeoutSeconds, defaultStepTimeout),
	)
}

func (p *PresetConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("preset.path", &p.Path, defaultPresetPath),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (n *NotesConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("notes.timeout_seconds", &n.TimeoutSeconds, defaultNotesTimeout),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
