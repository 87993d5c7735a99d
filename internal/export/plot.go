// Package export renders saved run trajectories to image files.
package export

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/dkoz/tiltrail/internal/storage"
)

// RenderPNG plots position, setpoint, and rail angle against time and
// saves the chart to path. The format follows the file extension.
func RenderPNG(path string, series *storage.Series) error {
	if len(series.Times) == 0 {
		return fmt.Errorf("export: no samples to plot")
	}

	p := plot.New()
	p.Title.Text = "ball on rail"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "position (m) / angle (rad)"
	p.Add(plotter.NewGrid())

	pos, err := plotter.NewLine(xys(series.Times, series.Positions))
	if err != nil {
		return err
	}
	pos.Color = color.RGBA{R: 0xc9, G: 0x2b, B: 0x2b, A: 0xff}
	pos.Width = vg.Points(1.5)

	sp, err := plotter.NewLine(xys(series.Times, series.Setpoints))
	if err != nil {
		return err
	}
	sp.Color = color.RGBA{R: 0x3f, G: 0x7f, B: 0x00, A: 0xff}
	sp.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	angle, err := plotter.NewLine(xys(series.Times, series.Angles))
	if err != nil {
		return err
	}
	angle.Color = color.RGBA{R: 0x44, G: 0x44, B: 0x66, A: 0xff}

	p.Add(pos, sp, angle)
	p.Legend.Add("position", pos)
	p.Legend.Add("setpoint", sp)
	p.Legend.Add("angle", angle)
	p.Legend.Top = true

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

func xys(ts, vs []float64) plotter.XYs {
	n := len(ts)
	if len(vs) < n {
		n = len(vs)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = ts[i]
		pts[i].Y = vs[i]
	}
	return pts
}
