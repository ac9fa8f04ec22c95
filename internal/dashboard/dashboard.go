package dashboard

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tankdcs/internal/config"
	"github.com/san-kum/tankdcs/internal/plant"
	"github.com/san-kum/tankdcs/internal/supervisor"
)

const (
	cardWidth       = 36
	gaugeWidth      = 30
	historyCapacity = 600
	messageTicks    = 3
	nudge           = 10.0

	// gauge easing between plant ticks
	frameRate       = 30
	springFrequency = 6.0
	springDamping   = 1.0
)

type TickMsg time.Time

// FrameMsg drives gauge animation; it never advances the plant.
type FrameMsg time.Time

// Model is the bubbletea model for the DCS dashboard.
type Model struct {
	sup      *supervisor.Supervisor
	logger   *log.Logger
	dt       float64
	period   time.Duration
	levelMin float64
	levelMax float64
	tgtMin   float64
	tgtMax   float64
	step     float64

	snaps    []plant.Snapshot
	spring   harmonica.Spring
	shown    []float64
	velocity []float64
	levels   [][]float64
	targets  [][]float64
	selected int
	width    int
	theme    int
	styles   styles
	showHelp bool

	message  string
	msgTicks int
}

type Option func(*Model)

func WithLogger(l *log.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTheme selects the initial color theme by name.
func WithTheme(name string) Option {
	return func(m *Model) {
		m.theme = slices.Index(ThemeNames(), GetTheme(name).Name)
	}
}

// WithTargetStep sets how far one key press moves a setpoint.
func WithTargetStep(v float64) Option {
	return func(m *Model) {
		if v > 0 {
			m.step = v
		}
	}
}

func NewModel(sup *supervisor.Supervisor, cfg *config.Config, opts ...Option) Model {
	snaps := sup.Snapshots()
	m := Model{
		sup:      sup,
		logger:   log.New(io.Discard),
		dt:       cfg.Dt,
		period:   cfg.TickPeriod,
		levelMin: cfg.LevelMin,
		levelMax: cfg.LevelMax,
		tgtMin:   cfg.TargetMin,
		tgtMax:   cfg.TargetMax,
		step:     5,
		snaps:    snaps,
		spring:   harmonica.NewSpring(harmonica.FPS(frameRate), springFrequency, springDamping),
		shown:    make([]float64, len(snaps)),
		velocity: make([]float64, len(snaps)),
		levels:   make([][]float64, len(snaps)),
		targets:  make([][]float64, len(snaps)),
		width:    80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.styles = newStyles(Themes[m.theme])
	for i, snap := range snaps {
		m.shown[i] = snap.Level
	}
	m.record()
	m.notify("Simulation running")
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.frame())
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return FrameMsg(t) })
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and advances the plant on every tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case FrameMsg:
		for i, snap := range m.snaps {
			m.shown[i], m.velocity[i] = m.spring.Update(m.shown[i], m.velocity[i], snap.Level)
		}
		return m, m.frame()
	case TickMsg:
		if !m.sup.Paused() {
			m.snaps = m.sup.Tick(m.dt)
			m.record()
		}
		if m.msgTicks > 0 {
			m.msgTicks--
			if m.msgTicks == 0 {
				m.message = ""
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		paused := !m.sup.Paused()
		m.sup.SetPause(paused)
		if paused {
			m.notify("Simulation paused")
		} else {
			m.notify("Simulation running")
		}
	case "r":
		m.sup.ResetAll()
		for i := range m.levels {
			m.levels[i] = m.levels[i][:0]
			m.targets[i] = m.targets[i][:0]
		}
		m.snaps = m.sup.Snapshots()
		m.record()
		m.notify("Tank states reset to defaults")
	case "tab", "right", "l":
		m.selected = (m.selected + 1) % len(m.snaps)
	case "shift+tab", "left", "h":
		m.selected = (m.selected + len(m.snaps) - 1) % len(m.snaps)
	case "up", "k":
		m.moveTarget(m.step)
	case "down", "j":
		m.moveTarget(-m.step)
	case "d":
		v, err := m.sup.InjectRandomDisturbance(m.selected)
		m.report(err, fmt.Sprintf("Applied disturbance to %s: %+.0f", m.name(), v))
	case "+", "=":
		err := m.sup.InjectDisturbance(m.selected, nudge)
		m.report(err, fmt.Sprintf("Applied disturbance to %s: %+.0f", m.name(), nudge))
	case "-", "_":
		err := m.sup.InjectDisturbance(m.selected, -nudge)
		m.report(err, fmt.Sprintf("Applied disturbance to %s: %+.0f", m.name(), -nudge))
	case "s":
		v, err := m.sup.TriggerSpill(m.selected)
		m.report(err, fmt.Sprintf("Spill sample triggered for %s: %+.0f", m.name(), v))
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = newStyles(Themes[m.theme])
		m.notify("Theme: " + Themes[m.theme].Name)
	case "?":
		m.showHelp = !m.showHelp
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(m.snaps) {
				m.selected = i
			}
		}
	}
	return m, nil
}

func (m *Model) moveTarget(delta float64) {
	// the setpoint stops at its range like a slider
	target := max(m.tgtMin, min(m.tgtMax, m.snaps[m.selected].Target+delta))
	err := m.sup.SetTarget(m.selected, target)
	m.snaps = m.sup.Snapshots()
	snap := m.snaps[m.selected]
	m.report(err, fmt.Sprintf("%s target changed to %.0f%% (range %.0f-%.0f%%)", snap.Name, snap.Target, snap.Low, snap.High))
}

func (m *Model) report(err error, ok string) {
	if err != nil {
		m.logger.Warn("command rejected", "err", err)
		m.notify("Rejected: " + err.Error())
		return
	}
	m.logger.Info(ok)
	m.notify(ok)
}

func (m *Model) notify(s string) {
	m.message = s
	m.msgTicks = messageTicks
}

func (m *Model) name() string {
	return m.snaps[m.selected].Name
}

func (m *Model) record() {
	for i, s := range m.snaps {
		m.levels[i] = appendCapped(m.levels[i], s.Level)
		m.targets[i] = appendCapped(m.targets[i], s.Target)
	}
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// View renders the dashboard.
func (m Model) View() string {
	st := m.styles
	var b strings.Builder

	b.WriteString("\n  " + st.title.Render("DISTRIBUTED CONTROL SYSTEM DASHBOARD") + "\n")
	b.WriteString("  " + st.subtitle.Render("Each tank has local control. Adjust target levels and inject disturbances to observe behavior.") + "\n\n")

	state := st.running.Render("● RUNNING")
	if m.sup.Paused() {
		state = st.paused.Render("❚❚ PAUSED")
	}
	b.WriteString(fmt.Sprintf("  %s  %s\n\n", state,
		st.hint.Render(fmt.Sprintf("tick %d  t=%.1fs  seed %d", m.sup.Ticks(), m.sup.Elapsed(), m.sup.Seed()))))

	b.WriteString(m.grid() + "\n")

	if len(m.levels) > 0 && len(m.levels[m.selected]) > 1 {
		snap := m.snaps[m.selected]
		chart := asciigraph.PlotMany(
			[][]float64{m.levels[m.selected], m.targets[m.selected]},
			asciigraph.Height(8),
			asciigraph.Width(min(60, max(20, m.width-20))),
			asciigraph.LowerBound(m.levelMin),
			asciigraph.UpperBound(m.levelMax),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
			asciigraph.Caption(snap.Name+" level (green) vs target (red)"),
		)
		b.WriteString(lipgloss.NewStyle().Padding(1, 2).Render(chart) + "\n")
	}

	if m.message != "" {
		b.WriteString("  " + st.value.Render(m.message) + "\n")
	}
	b.WriteString("\n  " + m.hints() + "\n")

	if m.showHelp {
		return helpText + "\n" + b.String()
	}
	return b.String()
}

func (m Model) grid() string {
	cols := max(1, min(2, m.width/(cardWidth+4)))
	var rows []string
	for i := 0; i < len(m.snaps); i += cols {
		var row []string
		for j := i; j < min(i+cols, len(m.snaps)); j++ {
			row = append(row, m.card(j))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) card(i int) string {
	st := m.styles
	snap := m.snaps[i]
	statusStyle := st.status[snap.Status]

	var b strings.Builder
	b.WriteString(st.title.Render(snap.Name) + "\n")
	b.WriteString(st.label.Render("Level") + statusStyle.Render(fmt.Sprintf("%.1f%%", snap.Level)) + "\n")
	b.WriteString(st.label.Render("Status") + statusStyle.Render(snap.Status.String()) + "\n")
	b.WriteString(st.label.Render("Target") + st.value.Render(fmt.Sprintf("%.0f%%  range %.0f-%.0f%%", snap.Target, snap.Low, snap.High)) + "\n")
	b.WriteString(st.label.Render("Flow") + st.value.Render(fmt.Sprintf("%+.2f", snap.Flow)) + "\n")
	if snap.Overflow {
		b.WriteString(st.label.Render("Overflow") + st.spill.Render("spill active") + "\n")
	} else {
		b.WriteString(st.label.Render("Overflow") + st.hint.Render("inactive") + "\n")
	}
	eased := snap
	eased.Level = m.shown[i]
	b.WriteString(statusStyle.Render(gauge(eased, m.levelMin, m.levelMax, gaugeWidth)) + "\n")
	b.WriteString(st.hint.Render(sparkline(m.levels[i], m.levelMin, m.levelMax, gaugeWidth)))

	if i == m.selected {
		return st.focused.Render(b.String())
	}
	return st.card.Render(b.String())
}

func (m Model) hints() string {
	st := m.styles
	pairs := [][2]string{
		{"space", "pause"}, {"r", "reset"}, {"tab", "tank"}, {"↑↓", "target"},
		{"d", "disturb"}, {"s", "spill"}, {"t", "theme"}, {"?", "help"}, {"q", "quit"},
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = st.key.Render(p[0]) + st.hint.Render(" "+p[1])
	}
	return strings.Join(parts, "  ")
}

const helpText = `
╔══════════════════════════════════════════╗
║            KEYBOARD SHORTCUTS            ║
╠══════════════════════════════════════════╣
║  Space     - Pause/Resume simulation     ║
║  R         - Reset all tanks             ║
║  Tab/←→    - Select tank (1-9 to jump)   ║
║  ↑↓ K/J    - Raise/lower setpoint        ║
║  D         - Random disturbance          ║
║  + / -     - Fixed ±10 disturbance       ║
║  S         - Trigger spill sample        ║
║  T         - Cycle themes                ║
║  ?         - Toggle this help            ║
║  Q         - Quit                        ║
╚══════════════════════════════════════════╝`

// Run starts the dashboard on the alternate screen and blocks until quit.
func Run(sup *supervisor.Supervisor, cfg *config.Config, opts ...Option) error {
	p := tea.NewProgram(NewModel(sup, cfg, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
