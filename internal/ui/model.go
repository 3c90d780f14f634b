// ABOUTME: Bubbletea model for the timecode monitor
// ABOUTME: Defines monitor state, status updates and rendering
package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/Sendspin/ltc-go/internal/chase"
	"github.com/Sendspin/ltc-go/pkg/protocol"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	timecodeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	heldStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	faintStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the monitor state
type Model struct {
	title  string
	source string

	// Server mode
	clients []string
	port    int

	// Last frame
	frame    protocol.TimecodeFrame
	hasFrame bool

	// Signal
	quality chase.Quality
	speed   float64

	// Stats
	frames    uint64
	discarded uint64
	dropped   uint64

	// Freeze the display on the current frame
	hold bool

	showDebug bool
	quitting  bool
	quitChan  chan struct{}

	width  int
	height int
}

// NewModel creates a monitor model
func NewModel(title string, quitChan chan struct{}) Model {
	return Model{
		title:    title,
		quality:  chase.QualityLost,
		speed:    1.0,
		quitChan: quitChan,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FrameMsg:
		m.applyFrame(msg)
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the monitor
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTimecode())
	b.WriteString(m.renderSignal())
	b.WriteString(m.renderStats())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	s := titleStyle.Render(m.title) + "\n\n"
	s += fmt.Sprintf("Source:  %s\n", truncate(m.source, 60))
	if m.port != 0 {
		s += fmt.Sprintf("Serving: :%d%s (%d clients)\n", m.port, protocol.DefaultPath, len(m.clients))
		for _, c := range m.clients {
			s += fmt.Sprintf("  • %s\n", truncate(c, 56))
		}
	}
	return s + "\n"
}

func (m Model) renderTimecode() string {
	if !m.hasFrame {
		return timecodeStyle.Render("--:--:--:--") + "\n\n"
	}

	style := timecodeStyle
	if m.hold {
		style = heldStyle
	}

	s := style.Render(m.frame.Timecode)
	if m.frame.Reverse {
		s += "  ◀ reverse"
	}
	if m.hold {
		s += "  [hold]"
	}
	s += "\n"
	if m.frame.Date != "" {
		s += fmt.Sprintf("%s %s\n", m.frame.Date, m.frame.Timezone)
	}
	return s + "\n"
}

func (m Model) renderSignal() string {
	icon := "✗"
	switch m.quality {
	case chase.QualityGood:
		icon = "✓"
	case chase.QualityDegraded:
		icon = "⚠"
	}

	s := fmt.Sprintf("Signal:  %s %s  speed %+.3fx\n", icon, m.quality, m.speed)
	if m.hasFrame {
		s += fmt.Sprintf("Level:   [%s] %.1f dBFS\n", renderBar(m.frame.VolumeDBFS), m.frame.VolumeDBFS)
	}
	return s
}

func (m Model) renderStats() string {
	return fmt.Sprintf("Frames:  %d  Discarded: %d  Dropped: %d\n\n", m.frames, m.discarded, m.dropped)
}

func (m Model) renderDebug() string {
	if !m.hasFrame {
		return "DEBUG: no frame\n\n"
	}
	return fmt.Sprintf("DEBUG:\n  Samples: %d - %d\n  User bits: %08X\n  Drop-frame: %v\n\n",
		m.frame.OffStart, m.frame.OffEnd, m.frame.UserBits, m.frame.DropFrame)
}

func (m Model) renderHelp() string {
	return faintStyle.Render("h:Hold  d:Debug  q:Quit") + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "h", " ":
		m.hold = !m.hold
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyFrame shows a decoded frame unless the display is held
func (m *Model) applyFrame(msg FrameMsg) {
	if msg.Speed != 0 {
		m.speed = msg.Speed
	}
	if m.hold {
		return
	}
	m.frame = protocol.TimecodeFrame(msg)
	m.hasFrame = true
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.Port != 0 {
		m.port = msg.Port
	}
	if msg.Clients != nil {
		m.clients = msg.Clients
	}
	if msg.Quality != nil {
		m.quality = *msg.Quality
	}
	if msg.Speed != 0 {
		m.speed = msg.Speed
	}
	if msg.Frames != 0 {
		m.frames = msg.Frames
		m.discarded = msg.Discarded
		m.dropped = msg.Dropped
	}
}

// FrameMsg carries a decoded frame
type FrameMsg protocol.TimecodeFrame

// StatusMsg updates monitor state. Zero fields are left unchanged.
type StatusMsg struct {
	Source    string
	Port      int
	Clients   []string
	Quality   *chase.Quality
	Speed     float64
	Frames    uint64
	Discarded uint64
	Dropped   uint64
}

// renderBar draws a level meter from -60 to 0 dBFS
func renderBar(dbfs float64) string {
	const width = 20
	if math.IsInf(dbfs, -1) || math.IsNaN(dbfs) {
		dbfs = -60
	}
	filled := int(math.Round((dbfs + 60) / 60 * width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
