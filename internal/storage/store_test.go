package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/metrics"
	"github.com/san-kum/braketilt/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPreset(t *testing.T, name string) (*config.Config, *sim.Result) {
	t.Helper()
	cfg := config.GetPreset(name)
	require.NotNil(t, cfg)
	cfg.Dt = 0.01

	s := sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	result, err := s.Run(context.Background(), sim.Config{Dt: cfg.Dt})
	require.NoError(t, err)
	return cfg, result
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	cfg, result := runPreset(t, "panic-stop")
	cfg.Seed = 42

	runID, err := st.Save(cfg, result)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "panic-stop_"))
	assert.Len(t, runID, len("panic-stop_")+8)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, "panic-stop", meta.Scenario)
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, cfg.BrakeTilt, meta.BrakeTilt)
	assert.Equal(t, len(result.Steps), meta.Steps)
	assert.Equal(t, result.Metrics, meta.Metrics)

	steps, err := st.LoadTrace(runID)
	require.NoError(t, err)
	if diff := cmp.Diff(result.Steps, steps); diff != "" {
		t.Errorf("trace did not round-trip (-saved +loaded):\n%s", diff)
	}
}

func TestStoreUniqueIDs(t *testing.T) {
	st := New(t.TempDir())
	cfg, result := runPreset(t, "flat-stop")

	a, err := st.Save(cfg, result)
	require.NoError(t, err)
	b, err := st.Save(cfg, result)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	cfg, result := runPreset(t, "flat-stop")
	first, err := st.Save(cfg, result)
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	second, err := st.Save(cfg, result)
	require.NoError(t, err)

	// unrelated entries are skipped
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(st.Dir(), "empty"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreFileStructure(t *testing.T) {
	st := New(t.TempDir())
	cfg, result := runPreset(t, "flat-stop")

	runID, err := st.Save(cfg, result)
	require.NoError(t, err)

	for _, name := range []string{metadataFile, traceFile} {
		_, err := os.Stat(filepath.Join(st.Dir(), runID, name))
		assert.NoError(t, err, name)
	}
}

func TestStoreNotFound(t *testing.T) {
	st := New(t.TempDir())

	_, err := st.Load("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.LoadTrace("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReadTraceErrors(t *testing.T) {
	steps, err := ReadTrace(strings.NewReader(strings.Join(traceHeader, ",") + "\n"))
	require.NoError(t, err)
	assert.Empty(t, steps)

	_, err = ReadTrace(strings.NewReader("time,phase\n0,brake\n"))
	assert.Error(t, err, "short rows are rejected")

	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, []sim.Step{{Phase: "brake"}}))
	bad := strings.Replace(buf.String(), "false", "maybe", 1)
	_, err = ReadTrace(strings.NewReader(bad))
	assert.ErrorContains(t, err, "braking")
}
