package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	ID        string             `json:"id"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Setpoint  float64            `json:"setpoint"`
	Kp        float64            `json:"kp"`
	Ki        float64            `json:"ki"`
	Kd        float64            `json:"kd"`
	OffRail   bool               `json:"off_rail"`
	Steps     int                `json:"steps"`
	Times     []float64          `json:"times"`
	Positions []float64          `json:"positions"`
	Angles    []float64          `json:"angles"`
	Controls  []float64          `json:"controls"`
	Setpoints []float64          `json:"setpoints"`
	Metrics   map[string]float64 `json:"metrics"`
}

// ExportJSON writes a full run (metadata plus trajectory) as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, series *Series) error {
	data := ExportData{
		ID:        meta.ID,
		Dt:        meta.Dt,
		Duration:  meta.Duration,
		Setpoint:  meta.Setpoint,
		Kp:        meta.Kp,
		Ki:        meta.Ki,
		Kd:        meta.Kd,
		OffRail:   meta.OffRail,
		Steps:     len(series.Times),
		Times:     series.Times,
		Positions: series.Positions,
		Angles:    series.Angles,
		Controls:  series.Controls,
		Setpoints: series.Setpoints,
		Metrics:   meta.Metrics,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
