// SPDX-License-Identifier: MIT

// Package tui is the interactive front end of a live run: a Bubble Tea
// program showing the run's progress and forwarding key presses into the
// engine as KeyDown commands.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"audiostream/internal/engine"
	"audiostream/internal/fault"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E84855")).
			Bold(true)
)

// RefreshInterval is how often the status view is redrawn.
const RefreshInterval = 100 * time.Millisecond

// Session is the part of a running engine context the UI needs.
// *engine.Context implements it.
type Session interface {
	Post(cmd engine.Command) error
	State() engine.State
	ProcessedSampleCount() int64
	Stages() []engine.StageStatus
	Done() <-chan struct{}
	Err() error
}

// LiveOptions describe what the status view shows besides the session.
type LiveOptions struct {
	Title      string
	SampleRate float64
	// Recording reports whether a capture is in progress. Optional.
	Recording func() bool
	// Beats reports the number of detected beats. Optional.
	Beats func() int64
}

type keyMap struct {
	Record key.Binding
	Abort  key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Record: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
	Abort:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "abort recording")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

type doneMsg struct{}

// LiveModel is the Bubble Tea model of a live run.
type LiveModel struct {
	session Session
	opts    LiveOptions

	err  error
	done bool
}

// NewLiveModel creates the model for session.
func NewLiveModel(session Session, opts LiveOptions) LiveModel {
	if opts.Title == "" {
		opts.Title = "Live"
	}
	return LiveModel{session: session, opts: opts}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitDone(s Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return doneMsg{}
	}
}

func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(tick(), waitDone(m.session))
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Record):
			m.post(engine.KeyDown{Value: KeyRecord})
		case key.Matches(msg, keys.Abort):
			m.post(engine.KeyDown{Value: KeyAbort})
		case key.Matches(msg, keys.Quit):
			// The program exits on doneMsg once every stage drained. If
			// the run can no longer take commands, leave right away.
			if err := m.session.Post(engine.KeyDown{Value: KeyQuit}); err != nil {
				return m, tea.Quit
			}
		}

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()

	case doneMsg:
		m.done = true
		m.err = m.session.Err()
		return m, tea.Quit
	}
	return m, nil
}

func (m *LiveModel) post(cmd engine.Command) {
	if err := m.session.Post(cmd); err != nil && !errors.Is(err, fault.ErrOperation) {
		m.err = err
	}
}

// Err returns the failure shown by the model, if any.
func (m LiveModel) Err() error { return m.err }

func (m LiveModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.opts.Title))
	sb.WriteString("\n\n")

	position := m.session.ProcessedSampleCount()
	fmt.Fprintf(&sb, "State:    %s\n", m.session.State())
	if m.opts.SampleRate > 0 {
		elapsed := time.Duration(float64(position) / m.opts.SampleRate * float64(time.Second))
		fmt.Fprintf(&sb, "Position: %d samples (%s)\n", position, elapsed.Truncate(10*time.Millisecond))
	} else {
		fmt.Fprintf(&sb, "Position: %d samples\n", position)
	}
	if m.opts.Recording != nil {
		if m.opts.Recording() {
			sb.WriteString(highlightStyle.Render("● recording"))
		} else {
			sb.WriteString(infoStyle.Render("○ not recording"))
		}
		sb.WriteString("\n")
	}
	if m.opts.Beats != nil {
		fmt.Fprintf(&sb, "Beats:    %d\n", m.opts.Beats())
	}

	sb.WriteString("\n")
	for _, st := range m.session.Stages() {
		line := fmt.Sprintf("  %-14s %10d", st.Name, st.Processed)
		if st.Halted {
			sb.WriteString(errorStyle.Render(line + "  halted"))
		} else {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("%s: %s • %s: %s • %s: %s",
		keys.Record.Help().Key, keys.Record.Help().Desc,
		keys.Abort.Help().Key, keys.Abort.Help().Desc,
		keys.Quit.Help().Key, keys.Quit.Help().Desc)))
	sb.WriteString("\n")
	return sb.String()
}

// RunLive runs the live UI until the session completes. Extra options are
// passed to tea.NewProgram.
func RunLive(session Session, opts LiveOptions, programOpts ...tea.ProgramOption) error {
	final, err := tea.NewProgram(NewLiveModel(session, opts), programOpts...).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(LiveModel); ok {
		return m.Err()
	}
	return nil
}
