// Package preset 管理按 regime 覆盖的动态引擎参数预设。
// 预设文件是 YAML，经 JSON Schema 校验后热更新到快照，
// 引擎每次规划取一份快照用，改文件不用重启。
package preset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tplan/internal/engine"
	"tplan/internal/logger"
)

// regimeOverride 单个 regime 的覆盖项，缺省字段沿用内置表。
type regimeOverride struct {
	KBuf     *float64 `yaml:"k_buf"`
	M1       *float64 `yaml:"m1"`
	M2       *float64 `yaml:"m2"`
	T1Frac   *float64 `yaml:"t1_frac"`
	T2Frac   *float64 `yaml:"t2_frac"`
	TrailLeg *bool    `yaml:"trail_leg"`
}

// fileConfig 映射 regimes。
type fileConfig struct {
	Regimes map[string]regimeOverride `yaml:"regimes"`
}

// Snapshot 公开的参数表快照，直接喂给 engine.Options.Tuning。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Tuning   map[string]engine.RegimeTuning
}

// ChangeListener 在预设重载时触发。
type ChangeListener func(Snapshot)

// Registry 监听预设文件并维护当前参数表。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

const presetSchema = `{
  "type": "object",
  "properties": {
    "regimes": {
      "type": "object",
      "propertyNames": {"enum": ["calm", "normal", "hot", "wild"]},
      "additionalProperties": {
        "type": "object",
        "properties": {
          "k_buf":     {"type": "number", "minimum": 0},
          "m1":        {"type": "number", "exclusiveMinimum": 0},
          "m2":        {"type": "number", "exclusiveMinimum": 0},
          "t1_frac":   {"type": "number", "minimum": 0, "maximum": 1},
          "t2_frac":   {"type": "number", "minimum": 0, "maximum": 1},
          "trail_leg": {"type": "boolean"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var schemaCompiled = jsonschema.MustCompileString("preset.json", presetSchema)

// NewRegistry 读取预设文件并监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read preset config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("preset reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前参数表。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Tuning 当前参数表，engine.Options.Tuning 直接可用。
func (r *Registry) Tuning() map[string]engine.RegimeTuning {
	return r.Snapshot().Tuning
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readPresetFile(r.path)
	if err != nil {
		return err
	}
	tuning := engine.DefaultTuning()
	for regime, ov := range cfg.Regimes {
		base := tuning[regime]
		if ov.KBuf != nil {
			base.KBuf = *ov.KBuf
		}
		if ov.M1 != nil {
			base.M1 = *ov.M1
		}
		if ov.M2 != nil {
			base.M2 = *ov.M2
		}
		if ov.T1Frac != nil {
			base.T1Frac = *ov.T1Frac
		}
		if ov.T2Frac != nil {
			base.T2Frac = *ov.T2Frac
		}
		if ov.TrailLeg != nil {
			base.TrailLeg = *ov.TrailLeg
		}
		tuning[regime] = base
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Tuning:   tuning,
	}
	r.mu.Unlock()
	logger.Infof("Preset registry loaded %d regime overrides from %s", len(cfg.Regimes), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("preset listener")
			cb(snap)
		}(fn)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Tuning:   make(map[string]engine.RegimeTuning, len(src.Tuning)),
	}
	for regime, params := range src.Tuning {
		dst.Tuning[regime] = params
	}
	return dst
}

func safeRecover(tag string) {
	if rec := recover(); rec != nil {
		logger.Errorf("%s panic: %v", tag, rec)
	}
}

func readPresetFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read preset config failed: %w", err)
	}
	// 先按宽松结构过 schema，再按强类型解码
	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fileConfig{}, fmt.Errorf("parse preset config failed: %w", err)
	}
	if generic != nil {
		if err := schemaCompiled.Validate(normalizeYAML(generic)); err != nil {
			return fileConfig{}, fmt.Errorf("preset config schema violation: %w", err)
		}
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse preset config failed: %w", err)
	}
	return cfg, nil
}

// normalizeYAML jsonschema 只认 JSON 基本类型，yaml 的 map[any]any 与 int 要先转一遍。
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = normalizeYAML(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeYAML(child)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}
