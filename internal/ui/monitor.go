// ABOUTME: Monitor TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it frames and status without blocking
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Monitor manages the monitor TUI
type Monitor struct {
	program  *tea.Program
	updates  chan tea.Msg
	quitChan chan struct{}
}

// NewMonitor creates a new monitor
func NewMonitor(title string) *Monitor {
	quitChan := make(chan struct{}, 1)
	return &Monitor{
		program:  tea.NewProgram(NewModel(title, quitChan), tea.WithAltScreen()),
		updates:  make(chan tea.Msg, 100),
		quitChan: quitChan,
	}
}

// Run runs the TUI until the user quits or Stop is called
func (t *Monitor) Run() error {
	go func() {
		for msg := range t.updates {
			t.program.Send(msg)
		}
	}()

	_, err := t.program.Run()
	return err
}

// Frame shows a decoded frame
func (t *Monitor) Frame(f FrameMsg) {
	t.send(f)
}

// Status sends a status update
func (t *Monitor) Status(s StatusMsg) {
	t.send(s)
}

func (t *Monitor) send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	default:
		// Don't block the decoder if the display falls behind
	}
}

// Stop stops the TUI
func (t *Monitor) Stop() {
	t.program.Quit()
}

// QuitChan returns the channel that signals when user wants to quit
func (t *Monitor) QuitChan() <-chan struct{} {
	return t.quitChan
}
