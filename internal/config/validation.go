package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Yahoo.validate(); err != nil {
		return err
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Notes.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	level := strings.ToLower(strings.TrimSpace(a.LogLevel))
	if !validLogLevels[level] {
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	return nil
}

func (y *YahooConfig) validate() error {
	if strings.TrimSpace(y.Range) == "" {
		return fmt.Errorf("yahoo.range cannot be empty")
	}
	if strings.TrimSpace(y.Interval) == "" {
		return fmt.Errorf("yahoo.interval cannot be empty")
	}
	if y.TimeoutSeconds <= 0 {
		return fmt.Errorf("yahoo.timeout_seconds must be > 0")
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if e.AccountEquity <= 0 {
		return fmt.Errorf("engine.account_equity must be > 0")
	}
	if e.RiskPct <= 0 || e.RiskPct >= 1 {
		return fmt.Errorf("engine.risk_pct must be in (0, 1), got %v", e.RiskPct)
	}
	if e.TickSize <= 0 {
		return fmt.Errorf("engine.tick_size must be > 0")
	}
	if e.LotSize < 1 {
		return fmt.Errorf("engine.lot_size must be >= 1")
	}
	return nil
}

func (n *NotesConfig) validate() error {
	if strings.TrimSpace(n.Token) != "" && strings.TrimSpace(n.DatabaseID) == "" {
		return fmt.Errorf("notes.database_id is required when notes.token is set")
	}
	return nil
}
