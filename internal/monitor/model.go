// Package monitor is a terminal front end for a headless engine: the field
// drawn in braille, the pointer driven by the mouse, live tuning of the force
// model and a plot of recent displacement.
package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pixeldust/internal/engine"
	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/metrics"
)

const (
	defaultWidth    = 60
	defaultHeight   = 20
	minWidth        = 20
	minHeight       = 8
	statsWidth      = 45
	historyCapacity = 240
	canvasPadX      = 2
	canvasPadY      = 1
	autoPeriod      = 180
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

type tunable struct {
	name  string
	field func(*field.Params) *float64
}

var tunables = []tunable{
	{"radius", func(p *field.Params) *float64 { return &p.ForceRadius }},
	{"strength", func(p *field.Params) *float64 { return &p.ForceStrength }},
	{"max disp", func(p *field.Params) *float64 { return &p.MaxDisplacement }},
	{"damping", func(p *field.Params) *float64 { return &p.Damping }},
	{"return", func(p *field.Params) *float64 { return &p.ReturnForce }},
}

type pointer struct {
	x, y float64
	ok   bool
}

// Model drives an engine from bubbletea ticks. The engine must have been
// started and sized to bufW×bufH.
type Model struct {
	eng      *engine.Engine
	rec      *metrics.Recorder
	canvas   *Canvas
	proj     Projection
	bufW     int
	bufH     int
	title    string
	initial  field.Params
	running  bool
	auto     bool
	autoT    int
	selected int
	pointer  pointer
	history  []float64
	note     string
	showHelp bool
}

func NewModel(eng *engine.Engine, rec *metrics.Recorder, bufW, bufH int, title string) Model {
	m := Model{
		eng:     eng,
		rec:     rec,
		bufW:    bufW,
		bufH:    bufH,
		title:   title,
		initial: eng.Params(),
		running: true,
		history: make([]float64, 0, historyCapacity),
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Run takes over the terminal until the user quits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err := p.Run()
	return err
}

func (m *Model) resize(w, h int) {
	m.canvas = NewCanvas(max(w, minWidth), max(h, minHeight))
	m.proj = Fit(m.bufW, m.bufH, m.canvas)
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			m.selected = (m.selected + 1) % len(tunables)
		case "up", "k":
			m.adjust(1.05)
		case "down", "j":
			m.adjust(0.95)
		case "r":
			m.eng.ResetField()
			if m.rec != nil {
				m.rec.Reset()
			}
			m.history = m.history[:0]
			m.pointer = pointer{}
		case "a":
			m.auto = !m.auto
			if !m.auto {
				m.leave()
			}
		case "l":
			m.leave()
		case "?":
			m.showHelp = !m.showHelp
		}
		return m, nil

	case tea.MouseMsg:
		if m.auto {
			return m, nil
		}
		dx := float64((msg.X-canvasPadX)*2 + 1)
		dy := float64((msg.Y-canvasPadY)*4 + 2)
		x, y := m.proj.FromDots(dx, dy)
		if x < 0 || y < 0 || x > float64(m.bufW) || y > float64(m.bufH) {
			m.leave()
			return m, nil
		}
		m.move(x, y)
		return m, nil

	case tea.WindowSizeMsg:
		m.resize(msg.Width-statsWidth-2*canvasPadX-4, msg.Height-2*canvasPadY-2)
		return m, nil

	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) move(x, y float64) {
	m.pointer = pointer{x, y, true}
	m.eng.PointerMove(x, y)
}

func (m *Model) leave() {
	m.pointer.ok = false
	m.eng.PointerLeave()
}

func (m *Model) step() {
	if m.auto {
		r := float64(min(m.bufW, m.bufH)) / 4
		sin, cos := math.Sincos(2 * math.Pi * float64(m.autoT) / autoPeriod)
		m.move(float64(m.bufW)/2+r*cos, float64(m.bufH)/2+r*sin)
		m.autoT++
	}
	m.eng.Frame(1)

	if len(m.history) == historyCapacity {
		m.history = append(m.history[:0], m.history[1:]...)
	}
	m.history = append(m.history, m.eng.Stats().Last.MaxDisplacement)
}

func (m *Model) adjust(factor float64) {
	p := m.eng.Params()
	v := tunables[m.selected].field(&p)
	*v *= factor
	if err := m.eng.SetParams(p); err != nil {
		m.note = "rejected: " + err.Error()
		return
	}
	m.note = ""
}

func (m *Model) draw() {
	m.canvas.Clear()
	if s := m.eng.Store(); s != nil {
		m.canvas.Plot(s.Positions(), m.proj)
	}
	if m.pointer.ok && m.eng.Stats().Active {
		px, py := m.proj.ToDots(m.pointer.x, m.pointer.y)
		m.canvas.DrawLine(px-2, py, px+2, py)
		m.canvas.DrawLine(px, py-2, px, py+2)
	}
}

func (m Model) View() string {
	st := m.eng.Stats()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case !m.running:
		s.WriteString(statusPaused.Render("PAUSED"))
	case st.Loading:
		s.WriteString(statusIdle.Render("LOADING"))
	case st.Active || !st.Settled:
		s.WriteString(statusActive.Render("ACTIVE"))
	default:
		s.WriteString(statusIdle.Render("AT REST"))
	}
	if m.auto {
		s.WriteString(" " + statusActive.Render("AUTO"))
	}
	s.WriteString("\n\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Max displacement"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Particles", fmt.Sprintf("%d", st.Particles))
	row("Frame", fmt.Sprintf("%d", st.Frames))
	row("Window", fmt.Sprintf("%d", st.Remaining))
	row("Max disp", fmt.Sprintf("%.2f", st.Last.MaxDisplacement))
	row("Mean disp", fmt.Sprintf("%.3f", st.Last.MeanDisplacement))
	row("Energy", fmt.Sprintf("%.2f", st.Last.Kinetic))
	if m.rec != nil {
		v := m.rec.Values()
		row("Clamp", fmt.Sprintf("%.3f", v["clamp_ratio"]))
		if settle := v["settle_frames"]; settle >= 0 {
			row("Settle", fmt.Sprintf("%.0f frames", settle))
		}
	}

	s.WriteString("\nPARAMETERS\n")
	p := m.eng.Params()
	for i, t := range tunables {
		val := *t.field(&p)
		initial := *t.field(&m.initial)
		barWidth, ratio := 10, 0.0
		if initial != 0 {
			ratio = math.Max(0, math.Min(1, val/(2*initial)))
		}
		filled := int(ratio * float64(barWidth))
		bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
		line := fmt.Sprintf("%-10s %s %.3f", t.name, bar, val)
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	if m.note != "" {
		s.WriteString(statusPaused.Render(m.note) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nA:Auto L:Leave ?:Help\nTab:Select ↑↓:Tune"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Mouse    - Push the field           ║
║  Space    - Pause/Resume             ║
║  R        - Reset field and metrics  ║
║  A        - Toggle autopilot circle  ║
║  L        - Pointer leaves           ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
