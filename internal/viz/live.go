// Package viz is the presentation collaborator: a terminal dashboard that
// renders the rail and ball, and pushes parameter edits into the control
// loop. The loop runs on its own goroutine; the view only reads state
// snapshots and may skip or repeat frames.
package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/dkoz/tiltrail/internal/loop"
)

const (
	canvasWidth  = 70
	canvasHeight = 20

	// historyWindow is how many seconds of setpoint/position history the
	// inset chart keeps.
	historyWindow = 12.0
)

var (
	canvasStyle  = lipgloss.NewStyle().Padding(1, 2)
	statsStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("112")).Bold(true).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("112")).Padding(1, 0)
	offRailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// paramSteps are the increments applied by the up/down keys, matching
// the reference dashboard's slider steps.
var paramSteps = map[string]float64{
	"setpoint": 0.01,
	"kp":       0.5,
	"ki":       0.1,
	"kd":       0.2,
}

var paramKeys = []string{"setpoint", "kp", "ki", "kd"}

type Model struct {
	loop       *loop.Loop
	railLength float64
	fps        int

	canvas   *Canvas
	posHist  []float64
	spHist   []float64
	histCap  int
	selected int
}

func NewModel(l *loop.Loop, railLength float64, fps int) Model {
	capacity := int(historyWindow * float64(fps))
	return Model{
		loop:       l,
		railLength: railLength,
		fps:        fps,
		canvas:     NewCanvas(canvasWidth, canvasHeight),
		posHist:    make([]float64, 0, capacity),
		spHist:     make([]float64, 0, capacity),
		histCap:    capacity,
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.loop.Stop()
			return m, tea.Quit
		case " ":
			if m.loop.Paused() {
				m.loop.Resume()
			} else {
				m.loop.Pause()
			}
		case "r":
			m.loop.Reset()
			m.posHist = m.posHist[:0]
			m.spHist = m.spHist[:0]
		case "tab":
			m.selected = (m.selected + 1) % len(paramKeys)
		case "up", "k":
			m.adjustParam(1)
		case "down", "j":
			m.adjustParam(-1)
		}
	case TickMsg:
		f := m.loop.Snapshot()
		m.posHist = appendWindow(m.posHist, f.Position, m.histCap)
		m.spHist = appendWindow(m.spHist, f.Setpoint, m.histCap)
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) adjustParam(dir float64) {
	key := paramKeys[m.selected]
	p := m.loop.Params()
	step := paramSteps[key] * dir

	switch key {
	case "setpoint":
		// Keep the target a ball-width inside the rail ends.
		limit := m.railLength/2 - 0.02
		p.Setpoint = clampF(p.Setpoint+step, -limit, limit)
	case "kp":
		p.Kp = math.Max(0, p.Kp+step)
	case "ki":
		p.Ki = math.Max(0, p.Ki+step)
	case "kd":
		p.Kd = math.Max(0, p.Kd+step)
	}

	// NaN/Inf can't arise from key steps; ignore the error path here.
	_ = m.loop.SetParams(p)
}

func (m Model) View() string {
	f := m.loop.Snapshot()
	m.drawScene(f)

	var s strings.Builder
	s.WriteString(headerStyle.Render("TILTRAIL") + "\n")

	status := "RUNNING"
	if m.loop.Paused() {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.posHist) > 1 {
		chart := asciigraph.PlotMany(
			[][]float64{m.spHist, m.posHist},
			asciigraph.Height(5),
			asciigraph.Width(34),
			asciigraph.Caption("setpoint / position"),
		)
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", f.Time)) + "\n")
	s.WriteString(labelStyle.Render("Position") + valueStyle.Render(fmt.Sprintf("%+.3f m", f.Position)) + "\n")
	s.WriteString(labelStyle.Render("Velocity") + valueStyle.Render(fmt.Sprintf("%+.3f m/s", f.Velocity)) + "\n")
	s.WriteString(labelStyle.Render("Tilt") + valueStyle.Render(fmt.Sprintf("%+.1f°", f.Angle*180/math.Pi)) + "\n")
	if f.OffRail {
		s.WriteString(offRailStyle.Render("BALL OFF RAIL — press R to reset") + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	p := m.loop.Params()
	values := map[string]float64{"setpoint": p.Setpoint, "kp": p.Kp, "ki": p.Ki, "kd": p.Kd}
	for i, key := range paramKeys {
		line := fmt.Sprintf("%-9s %+7.2f", key, values[key])
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("\n──────────────────────\nSP:Pause  R:Reset  Q:Quit\nTab:Select  ↑↓:Adjust"))

	canvasView := canvasStyle.Render(m.canvas.String())
	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

// drawScene renders the tilted rail, end posts, setpoint marker, and ball.
func (m Model) drawScene(f loop.Frame) {
	m.canvas.Clear()

	cw, ch := m.canvas.Width*2, m.canvas.Height*4
	cx, cy := cw/2, ch/2
	span := float64(cw) * 0.42

	// Character cells are roughly twice as tall as wide; halve the
	// vertical slope so tilt angles look right on screen.
	slope := math.Tan(f.Angle) * 0.5
	half := m.railLength / 2

	toScreen := func(pos float64) (int, int) {
		dx := pos / half * span
		return cx + int(dx), cy + int(dx*slope)
	}

	lx, ly := toScreen(-half)
	rx, ry := toScreen(half)
	m.canvas.DrawLine(lx, ly, rx, ry)

	// End posts.
	m.canvas.DrawLine(lx, ly-4, lx, ly+4)
	m.canvas.DrawLine(rx, ry-4, rx, ry+4)

	// Setpoint marker below the rail.
	sx, sy := toScreen(f.Setpoint)
	m.canvas.DrawLine(sx, sy+3, sx, sy+6)

	// Ball sits on top of the rail.
	bx, by := toScreen(f.Position)
	m.canvas.FillDot(bx, by-3, 2)
}

// Run starts the control loop on its own goroutine and blocks on the
// terminal UI until the user quits.
func Run(l *loop.Loop, railLength float64, fps int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	p := tea.NewProgram(NewModel(l, railLength, fps))
	_, err := p.Run()

	l.Stop()
	cancel()
	<-done
	return err
}

func appendWindow(hist []float64, v float64, capacity int) []float64 {
	hist = append(hist, v)
	if capacity > 0 && len(hist) > capacity {
		hist = hist[1:]
	}
	return hist
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
