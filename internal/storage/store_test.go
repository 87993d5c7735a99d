package storage

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoz/tiltrail/internal/runner"
)

func sampleResult() *runner.Result {
	return &runner.Result{
		Times:      []float64{0, 0.02, 0.04},
		Positions:  []float64{-0.22, -0.21, -0.19},
		Velocities: []float64{0, 0.5, 1.0},
		Angles:     []float64{0, 0.66, 0.66},
		Controls:   []float64{0, 7.0, 6.8},
		Setpoints:  []float64{0.1, 0.1, 0.1},
		Metrics:    map[string]float64{"overshoot": 0.01},
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(0.02, 12.0, 0.1, 22.0, 1.2, 4.5, sampleResult())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, 0.02, meta.Dt)
	assert.Equal(t, 22.0, meta.Kp)
	assert.InDelta(t, 0.01, meta.Metrics["overshoot"], 1e-12)

	series, err := st.LoadSeries(runID)
	require.NoError(t, err)
	require.Len(t, series.Times, 3)
	assert.InDelta(t, -0.19, series.Positions[2], 1e-6)
	assert.InDelta(t, 0.66, series.Angles[1], 1e-6)
	assert.InDelta(t, 0.1, series.Setpoints[0], 1e-6)
}

func TestListEmptyDir(t *testing.T) {
	st := New(t.TempDir() + "/does-not-exist")

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	_, err := st.Save(0.02, 12.0, 0.1, 22.0, 1.2, 4.5, sampleResult())
	require.NoError(t, err)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLoadUnknownRun(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	_, err := st.Load("run_0")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "time,position,velocity,angle,control,setpoint", string(lines[0]))
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(0.02, 12.0, 0.1, 22.0, 1.2, 4.5, sampleResult())
	require.NoError(t, err)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	series, err := st.LoadSeries(runID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, meta, series))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, runID, data.ID)
	assert.Equal(t, 3, data.Steps)
	assert.Len(t, data.Positions, 3)
}
