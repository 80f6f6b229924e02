package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	frameInterval = 16 * time.Millisecond
	historyLen    = 120
	maxSpeed      = 16
	minSpeed      = 0.125
)

type state int

const (
	stateMenu state = iota
	stateSim
)

type model struct {
	state   state
	cursor  int
	presets []string
	cfg     *config.Config

	sess      *sim.Session
	last      sim.Step
	started   bool
	done      bool
	paused    bool
	speed     float64
	carry     float64
	setpoints []float64
	targets   []float64
	pitches   []float64

	width  int
	height int
}

// NewLiveApp opens on the preset menu. A non-nil cfg skips the menu and plays
// it straight away.
func NewLiveApp(cfg *config.Config) *model {
	m := &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		speed:   1.0,
		width:   80,
		height:  24,
	}
	if cfg != nil {
		m.start(cfg)
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.state == stateSim {
		return tick()
	}
	return nil
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.state != stateSim {
			return m, nil
		}
		if !m.paused && !m.done {
			m.advance(m.cyclesPerFrame())
		}
		return m, tick()
	}
	return m, nil
}

// cyclesPerFrame keeps the scenario in step with the wall clock, scaled by
// speed. Fractional cycles carry over to the next frame.
func (m *model) cyclesPerFrame() int {
	m.carry += frameInterval.Seconds() / m.cfg.Dt * m.speed
	n := int(m.carry)
	m.carry -= float64(n)
	return n
}

func (m *model) advance(n int) {
	for i := 0; i < n; i++ {
		st, ok := m.sess.Next()
		if !ok {
			m.done = true
			return
		}
		m.last = st
		m.started = true
		m.setpoints = appendHistory(m.setpoints, float64(st.State.Setpoint))
		m.targets = appendHistory(m.targets, float64(st.State.Target))
		m.pitches = appendHistory(m.pitches, float64(st.Pitch))
	}
}

func appendHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[1:]
	}
	return h
}

func (m *model) start(cfg *config.Config) {
	m.cfg = cfg
	s := sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise)
	m.sess = s.NewSession(sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, Seed: cfg.Seed})
	m.state = stateSim
	m.reset()
}

func (m *model) reset() {
	if m.sess != nil {
		m.sess.Restart()
	}
	m.last = sim.Step{}
	m.started = false
	m.done = false
	m.paused = false
	m.carry = 0
	m.setpoints = make([]float64, 0, historyLen)
	m.targets = make([]float64, 0, historyLen)
	m.pitches = make([]float64, 0, historyLen)
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.presets) == 0 {
			return m, nil
		}
		m.start(config.GetPreset(m.presets[m.cursor]))
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateMenu
		return m, tea.ClearScreen
	case " ", "p":
		m.paused = !m.paused
	case "r":
		m.reset()
		return m, tea.ClearScreen
	case "+", "=":
		m.speed = math.Min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = math.Max(m.speed/2, minSpeed)
	case "0":
		m.speed = 1.0
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("b r a k e t i l t") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.presets {
		desc := config.Presets[name].Description
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-16s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-16s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter start   q quit") + "\n")

	return b.String()
}

func (m model) viewSim() string {
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	switch {
	case m.done:
		statusIcon = dim.Render("■")
		statusText = dim.Render("done")
	case m.paused:
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n",
		statusIcon, cyan.Render(m.cfg.Name), statusText, dim.Render(fmt.Sprintf("x%g", m.speed))))

	total := float64(m.sess.Steps())
	progress := 0.0
	if total > 0 {
		progress = math.Min(float64(m.sess.Index())/total, 1)
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	timeStr := fmt.Sprintf("%.2fs/%.2fs", m.last.Time, total*m.cfg.Dt)
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar, dim.Render(timeStr), dim.Render(m.last.Phase)))

	if len(m.setpoints) > 1 {
		graphWidth := m.width - 16
		if graphWidth < 40 {
			graphWidth = 40
		}
		graph := asciigraph.PlotMany([][]float64{m.targets, m.setpoints, m.pitches},
			asciigraph.Height(10),
			asciigraph.Width(graphWidth),
			asciigraph.SeriesColors(asciigraph.DarkGray, asciigraph.Blue, asciigraph.Red),
			asciigraph.Caption("target / setpoint / pitch (deg)"),
		)
		b.WriteString(indent(graph, "   ") + "\n\n")
	}

	st := m.last.State
	b.WriteString(fmt.Sprintf("   %s%s  %s%s  %s%s  %s%s\n",
		dim.Render("erpm="), white.Render(fmt.Sprintf("%.0f", m.last.ERPM)),
		dim.Render("pitch="), white.Render(fmt.Sprintf("%.2f", m.last.Pitch)),
		dim.Render("target="), white.Render(fmt.Sprintf("%.2f", st.Target)),
		dim.Render("setpoint="), magenta.Render(fmt.Sprintf("%.2f", st.Setpoint))))

	hold := dim.Render("hold-tilt off")
	if st.HoldTiltActive {
		hold = yellow.Render(fmt.Sprintf("hold-tilt %.1f° (%d left)", st.HoldTiltValue, st.HoldCounter))
	}
	window := dim.Render("window closed")
	if st.PitchTimer > 0 {
		window = cyan.Render(fmt.Sprintf("window %.3fs from %.2f°", st.PitchTimer, st.PitchAtTrigger))
	}
	b.WriteString("   " + hold + "  " + window + "\n")

	if m.last.Suppressed {
		b.WriteString("   " + red.Render("suppressed: slip or incline override") + "\n")
	} else if m.last.Winddown {
		b.WriteString("   " + dim.Render("winding down") + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  ±speed  r restart  esc presets  q quit") + "\n")

	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// RunLive plays cfg in the terminal, or opens the preset menu when cfg is nil.
func RunLive(cfg *config.Config) error {
	p := tea.NewProgram(NewLiveApp(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
