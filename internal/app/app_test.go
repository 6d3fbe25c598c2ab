package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gps_simulator/internal/config"
	"github.com/relabs-tech/gps_simulator/internal/emitter"
	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/movement"
	"github.com/relabs-tech/gps_simulator/internal/sinks"
)

func TestBuildModelPerMode(t *testing.T) {
	for mode, want := range map[string]movement.Kind{
		"random_walk": movement.KindRandomWalk,
		"preset_path": movement.KindPresetPath,
		"vehicle":     movement.KindVehicle,
	} {
		cfg := config.Default()
		cfg.SimMode = mode
		cfg.PresetPathFile = filepath.Join(t.TempDir(), "missing.txt")

		m, err := buildModel(cfg, movement.NewRand(1))
		require.NoError(t, err, mode)
		assert.Equal(t, want, m.Kind())
	}
}

func TestBuildModelLoadsPresetPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset_path.txt")
	require.NoError(t, os.WriteFile(path, []byte("12.9351,77.6142\n12.9352,77.6143\n"), 0o644))

	cfg := config.Default()
	cfg.SimMode = "preset_path"
	cfg.PresetPathFile = path

	m, err := buildModel(cfg, movement.NewRand(1))
	require.NoError(t, err)
	first := m.Next()
	assert.InDelta(t, 12.9351, first.Lat, 1e-9)
	assert.InDelta(t, 77.6143, m.Next().Lon, 1e-9)
}

func TestEmitterOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.SimIntervalMS = 250
	cfg.SimSignalLoss = 0.1

	opts := emitterOptions(cfg, movement.NewRand(1))
	assert.Equal(t, 250*time.Millisecond, opts.Interval)
	assert.Equal(t, "SIM001", opts.DeviceID)
	assert.InDelta(t, 0.1, opts.SignalLoss, 1e-9)
	assert.NotNil(t, opts.Rand)
}

func TestBuildSinksOfflineOutputs(t *testing.T) {
	cfg := config.Default()
	cfg.SimOutputs = []string{config.OutputHTTP, config.OutputConsole}

	sink, closeSinks, err := buildSinks(cfg)
	require.NoError(t, err)
	defer closeSinks()

	multi, ok := sink.(emitter.Multi)
	require.True(t, ok)
	require.Len(t, multi, 2)
	assert.IsType(t, &sinks.HTTP{}, multi[0])
	assert.IsType(t, &sinks.Console{}, multi[1])
}

func TestBuildSinksSingle(t *testing.T) {
	cfg := config.Default()
	cfg.SimOutputs = []string{config.OutputNMEA}

	sink, closeSinks, err := buildSinks(cfg)
	require.NoError(t, err)
	defer closeSinks()
	assert.IsType(t, &sinks.NMEA{}, sink)
}

func TestBuildSinksUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.SimOutputs = []string{"pigeon"}

	_, _, err := buildSinks(cfg)
	assert.Error(t, err)
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := printer(&buf)

	require.NoError(t, p.HandleFix(context.Background(), gps.Fix{
		DeviceID:  "mock_tracker_01",
		Latitude:  12.9351,
		Longitude: 77.6142,
		Timestamp: "2026-10-18T09:30:00.000Z",
		Speed:     gps.Float(42),
		Heading:   gps.Float(180),
	}))
	p.HandleLoss(context.Background(), time.Date(2026, 10, 18, 9, 30, 1, 0, time.UTC))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "mock_tracker_01")
	assert.Contains(t, lines[0], "LAT= 12.935100")
	assert.Contains(t, lines[0], "SPD= 42.0km/h")
	assert.Contains(t, lines[0], "HDG=180.0°")
	assert.True(t, strings.HasPrefix(lines[1], "[LOSS]"))
}
