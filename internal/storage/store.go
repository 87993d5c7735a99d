// Package storage persists completed runs: one directory per run with
// metadata.json and a states.csv trajectory.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dkoz/tiltrail/internal/runner"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Setpoint  float64            `json:"setpoint"`
	Kp        float64            `json:"kp"`
	Ki        float64            `json:"ki"`
	Kd        float64            `json:"kd"`
	OffRail   bool               `json:"off_rail"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Series holds a loaded trajectory, column per signal.
type Series struct {
	Times      []float64
	Positions  []float64
	Velocities []float64
	Angles     []float64
	Controls   []float64
	Setpoints  []float64
}

var csvHeader = []string{"time", "position", "velocity", "angle", "control", "setpoint"}

func (s *Store) Save(dt, duration, setpoint, kp, ki, kd float64, result *runner.Result) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: time.Now(),
		Dt:        dt,
		Duration:  duration,
		Setpoint:  setpoint,
		Kp:        kp,
		Ki:        ki,
		Kd:        kd,
		OffRail:   result.OffRail,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}

	return runID, nil
}

// WriteCSV streams a run trajectory as CSV.
func WriteCSV(w io.Writer, result *runner.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range result.Times {
		row := []string{
			formatFloat(result.Times[i]),
			formatFloat(result.Positions[i]),
			formatFloat(result.Velocities[i]),
			formatFloat(result.Angles[i]),
			formatFloat(result.Controls[i]),
			formatFloat(result.Setpoints[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return &Series{}, nil
	}

	series := &Series{}
	for _, record := range records[1:] {
		if len(record) < len(csvHeader) {
			continue
		}
		vals := make([]float64, len(csvHeader))
		ok := true
		for i := range vals {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		series.Times = append(series.Times, vals[0])
		series.Positions = append(series.Positions, vals[1])
		series.Velocities = append(series.Velocities, vals[2])
		series.Angles = append(series.Angles, vals[3])
		series.Controls = append(series.Controls, vals[4])
		series.Setpoints = append(series.Setpoints, vals[5])
	}

	return series, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
