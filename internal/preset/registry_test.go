package preset

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tplan/internal/engine"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryLoadsOverrides(t *testing.T) {
	path := writePreset(t, `
regimes:
  hot:
    k_buf: 0.9
    m1: 1.5
  calm:
    trail_leg: true
`)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	tuning := r.Tuning()
	// 覆盖的字段生效，其余沿用内置表
	assert.InDelta(t, 0.9, tuning["hot"].KBuf, 1e-9)
	assert.InDelta(t, 1.5, tuning["hot"].M1, 1e-9)
	assert.InDelta(t, 2.6, tuning["hot"].M2, 1e-9)
	assert.True(t, tuning["hot"].TrailLeg)

	assert.True(t, tuning["calm"].TrailLeg)
	assert.InDelta(t, 0.5, tuning["calm"].KBuf, 1e-9)

	// 没提到的 regime 原样保留
	assert.Equal(t, engine.DefaultTuning()["normal"], tuning["normal"])
	assert.Equal(t, engine.DefaultTuning()["wild"], tuning["wild"])
}

func TestRegistryEmptyOverrides(t *testing.T) {
	path := writePreset(t, "regimes: {}\n")
	r, err := NewRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultTuning(), r.Tuning())
}

func TestRegistryRejectsUnknownRegime(t *testing.T) {
	path := writePreset(t, `
regimes:
  frenzy:
    k_buf: 1.0
`)
	_, err := NewRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}

func TestRegistryRejectsBadTypes(t *testing.T) {
	path := writePreset(t, `
regimes:
  hot:
    m1: "fast"
`)
	_, err := NewRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}

func TestRegistryRejectsNegativeKBuf(t *testing.T) {
	path := writePreset(t, `
regimes:
  hot:
    k_buf: -0.5
`)
	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestReloadBumpsVersionAndNotifies(t *testing.T) {
	path := writePreset(t, "regimes: {}\n")
	r, err := NewRegistry(path)
	require.NoError(t, err)
	v1 := r.Snapshot().Version

	var wg sync.WaitGroup
	wg.Add(1)
	var got Snapshot
	r.OnChange(func(s Snapshot) {
		got = s
		wg.Done()
	})

	require.NoError(t, os.WriteFile(path, []byte("regimes:\n  wild:\n    m2: 4.0\n"), 0o644))
	require.NoError(t, r.reload())
	r.notifyListeners()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener not notified")
	}

	assert.Greater(t, got.Version, v1)
	assert.InDelta(t, 4.0, got.Tuning["wild"].M2, 1e-9)
}

func TestSnapshotIsIsolated(t *testing.T) {
	path := writePreset(t, "regimes: {}\n")
	r, err := NewRegistry(path)
	require.NoError(t, err)

	snap := r.Snapshot()
	snap.Tuning["hot"] = engine.RegimeTuning{KBuf: 99}
	assert.InDelta(t, 1.0, r.Tuning()["hot"].KBuf, 1e-9)
}

func TestRegistryLoadsShippedConfig(t *testing.T) {
	// 仓库自带的预设文件必须始终通过 schema，防止随代码漂移
	r, err := NewRegistry(filepath.Join("..", "..", "configs", "regime_presets.yaml"))
	require.NoError(t, err)

	tuning := r.Tuning()
	assert.InDelta(t, 0.8, tuning["hot"].KBuf, 1e-9)
	assert.InDelta(t, 1.6, tuning["hot"].M1, 1e-9)
	assert.InDelta(t, 1.1, tuning["wild"].KBuf, 1e-9)
	assert.InDelta(t, 2.0, tuning["wild"].M1, 1e-9)
	assert.InDelta(t, 3.4, tuning["wild"].M2, 1e-9)
	// 覆盖后 RR 门槛在 hot/wild 下可被满足
	assert.Greater(t, tuning["hot"].M1/tuning["hot"].KBuf, 1.7)
	assert.Equal(t, engine.DefaultTuning()["calm"], tuning["calm"])
	assert.Equal(t, engine.DefaultTuning()["normal"], tuning["normal"])
}
