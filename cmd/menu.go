// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/scaraworks/plotstream/pkg/plclink"
	"github.com/scaraworks/plotstream/pkg/runctl"
	"github.com/scaraworks/plotstream/pkg/stream"
	"github.com/scaraworks/plotstream/pkg/trajectory"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive operator console",
	Long: `Drive the plotter from an interactive terminal UI.

The console offers the three run modes:
  1. Full trajectory (CSV file or calibration grid)
  2. Single point
  3. Manual jog

A run streams in the background while the console shows acknowledged
command progress and the pen state. Esc aborts the active run between
commands; the pen is lifted and the drives are disabled before the
console returns to the menu.`,
	Args: cobra.NoArgs,
	RunE: runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

// Console stages
const (
	stageMode = iota
	stageInput
	stageRunning
	stageDone
)

// Input fields per mode
const (
	fieldPath = iota // FullTrajectory: CSV path ("grid" for the preset)
	fieldPos         // SinglePoint/ManualJog: positions, one per axis
	fieldVel         // SinglePoint/ManualJog: velocity
)

type progressMsg stream.Progress

type runDoneMsg struct {
	result stream.Result
	err    error
}

type eventEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// menuModel is the Bubble Tea model for the operator console.
type menuModel struct {
	session  *plclink.Session
	layout   stream.Layout
	endpoint string
	program  **tea.Program

	stage int
	mode  runctl.Mode

	pathInput textinput.Model
	posInput  textinput.Model
	velInput  textinput.Model
	focused   int

	// Active run
	cancel   context.CancelFunc
	progress stream.Progress
	started  time.Time

	// Last finished run
	result stream.Result
	runErr error

	events   []eventEntry
	width    int
	quitting bool
}

func runMenu(cmd *cobra.Command, args []string) error {
	session, endpoint, err := openSession()
	if err != nil {
		return err
	}
	defer session.Close()

	layout, err := activeLayout()
	if err != nil {
		return err
	}

	var program *tea.Program
	m := initialMenuModel(session, layout, endpoint, &program)
	p := tea.NewProgram(m, tea.WithAltScreen())
	program = p

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

func initialMenuModel(session *plclink.Session, layout stream.Layout, endpoint string, program **tea.Program) menuModel {
	path := textinput.New()
	path.Placeholder = "trajectory.csv (or \"grid\")"
	path.CharLimit = 128
	path.Width = 40

	pos := textinput.New()
	pos.Placeholder = axesPlaceholder(len(layout.Axes), "0")
	pos.CharLimit = 64
	pos.Width = 30

	vel := textinput.New()
	vel.Placeholder = "1000"
	vel.CharLimit = 8
	vel.Width = 10

	return menuModel{
		session:   session,
		layout:    layout,
		endpoint:  endpoint,
		program:   program,
		stage:     stageMode,
		pathInput: path,
		posInput:  pos,
		velInput:  vel,
		width:     80,
	}
}

func axesPlaceholder(axes int, value string) string {
	parts := make([]string, axes)
	for i := range parts {
		parts[i] = value
	}
	return strings.Join(parts, ",")
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case progressMsg:
		m.progress = stream.Progress(msg)

	case runDoneMsg:
		m.stage = stageDone
		m.result = msg.result
		m.runErr = msg.err
		m.cancel = nil
		if msg.err != nil {
			m.addEvent(fmt.Sprintf("Run failed: %v", msg.err), true)
		} else {
			m.addEvent(msg.result.String(), msg.result.State != stream.Completed)
		}
	}

	var cmd tea.Cmd
	if m.stage == stageInput {
		switch m.focused {
		case fieldPath:
			m.pathInput, cmd = m.pathInput.Update(msg)
		case fieldPos:
			m.posInput, cmd = m.posInput.Update(msg)
		case fieldVel:
			m.velInput, cmd = m.velInput.Update(msg)
		}
	}
	return m, cmd
}

func (m *menuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		return m, tea.Quit

	case "q":
		// Inputs need the literal key; quit only from menu stages.
		if m.stage == stageMode || m.stage == stageDone {
			m.quitting = true
			return m, tea.Quit
		}

	case "esc":
		switch m.stage {
		case stageInput:
			m.stage = stageMode
			return m, nil
		case stageRunning:
			if m.cancel != nil {
				m.cancel()
				m.addEvent("Abort requested", false)
			}
			return m, nil
		case stageDone:
			m.stage = stageMode
			return m, nil
		}

	case "tab", "shift+tab":
		if m.stage == stageInput && m.mode != runctl.FullTrajectory {
			return m.cycleInputFocus(msg.String() == "tab"), nil
		}

	case "enter":
		switch m.stage {
		case stageInput:
			return m.startRun()
		case stageDone:
			m.stage = stageMode
			return m, nil
		}

	case "1", "2", "3":
		if m.stage == stageMode {
			return m.selectMode(msg.String()), nil
		}
	}

	// Pass through to focused input
	if m.stage == stageInput {
		var cmd tea.Cmd
		switch m.focused {
		case fieldPath:
			m.pathInput, cmd = m.pathInput.Update(msg)
		case fieldPos:
			m.posInput, cmd = m.posInput.Update(msg)
		case fieldVel:
			m.velInput, cmd = m.velInput.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

func (m *menuModel) selectMode(key string) *menuModel {
	switch key {
	case "1":
		m.mode = runctl.FullTrajectory
		m.focused = fieldPath
		m.pathInput.Focus()
	case "2":
		m.mode = runctl.SinglePoint
		m.focused = fieldPos
		m.posInput.Focus()
	case "3":
		m.mode = runctl.ManualJog
		m.focused = fieldPos
		m.posInput.Focus()
	}
	m.stage = stageInput
	return m
}

func (m *menuModel) cycleInputFocus(forward bool) *menuModel {
	m.posInput.Blur()
	m.velInput.Blur()
	if m.focused == fieldPos {
		m.focused = fieldVel
		m.velInput.Focus()
	} else {
		m.focused = fieldPos
		m.posInput.Focus()
	}
	_ = forward // two fields: tab and shift+tab land on the other one
	return m
}

// startRun validates the inputs, spawns the run goroutine and switches
// the console to the running stage.
func (m *menuModel) startRun() (tea.Model, tea.Cmd) {
	params, err := m.buildParams()
	if err != nil {
		m.addEvent(err.Error(), true)
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.stage = stageRunning
	m.progress = stream.Progress{Acked: -1}
	m.started = time.Now()
	m.addEvent(fmt.Sprintf("Starting %s run", m.mode), false)

	mode := m.mode
	ctrl := &runctl.Controller{
		Port:   m.session,
		Layout: m.layout,
		Notify: func(p stream.Progress) {
			if prog := *m.program; prog != nil {
				prog.Send(progressMsg(p))
			}
		},
	}

	go func() {
		result, err := ctrl.Run(ctx, mode, params)
		cancel()
		if prog := *m.program; prog != nil {
			prog.Send(runDoneMsg{result: result, err: err})
		}
	}()

	return m, nil
}

func (m *menuModel) buildParams() (runctl.Params, error) {
	switch m.mode {
	case runctl.FullTrajectory:
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return runctl.Params{}, fmt.Errorf("enter a CSV path or \"grid\"")
		}
		if strings.EqualFold(path, "grid") {
			grid := trajectory.DefaultGrid()
			return runctl.Params{Grid: &grid}, nil
		}
		return runctl.Params{CSVPath: path}, nil

	case runctl.SinglePoint, runctl.ManualJog:
		pos, err := parseInt32List(m.posInput.Value(), len(m.layout.Axes))
		if err != nil {
			return runctl.Params{}, fmt.Errorf("position: %v", err)
		}
		velStr := strings.TrimSpace(m.velInput.Value())
		if velStr == "" {
			velStr = m.velInput.Placeholder
		}
		v, err := strconv.ParseInt(velStr, 10, 32)
		if err != nil || v <= 0 {
			return runctl.Params{}, fmt.Errorf("velocity must be a positive integer")
		}
		vel := make([]int32, len(pos))
		for i := range vel {
			vel[i] = int32(v)
		}
		return runctl.Params{Pos: pos, Vel: vel}, nil
	}
	return runctl.Params{}, fmt.Errorf("no mode selected")
}

func parseInt32List(s string, want int) ([]int32, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != want {
		return nil, fmt.Errorf("need %d comma-separated values, got %d", want, len(parts))
	}
	out := make([]int32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", p)
		}
		out[i] = int32(v)
	}
	return out, nil
}

func (m *menuModel) addEvent(message string, isError bool) {
	m.events = append(m.events, eventEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.events) > 50 {
		m.events = m.events[len(m.events)-50:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m menuModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("PLOTSTREAM CONSOLE"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %d axes | q=quit", m.endpoint, len(m.layout.Axes))))
	s.WriteString("\n\n")

	switch m.stage {
	case stageMode:
		s.WriteString(labelStyle.Render("Select run mode:"))
		s.WriteString("\n\n")
		s.WriteString("  1. Full trajectory (CSV or calibration grid)\n")
		s.WriteString("  2. Single point\n")
		s.WriteString("  3. Manual jog\n")

	case stageInput:
		s.WriteString(labelStyle.Render(fmt.Sprintf("Mode: %s", m.mode)))
		s.WriteString("\n\n")
		if m.mode == runctl.FullTrajectory {
			s.WriteString("Trajectory: ")
			s.WriteString(m.pathInput.View())
		} else {
			s.WriteString("Position: ")
			s.WriteString(m.posInput.View())
			s.WriteString("\nVelocity: ")
			s.WriteString(m.velInput.View())
			s.WriteString("\n")
			s.WriteString(headerStyle.Render("(Tab switches fields)"))
		}
		s.WriteString("\n\n")
		s.WriteString(headerStyle.Render("Enter starts the run, Esc returns to the menu"))

	case stageRunning:
		s.WriteString(labelStyle.Render(fmt.Sprintf("Streaming: %s", m.mode)))
		s.WriteString("\n\n")
		acked := "waiting for first acknowledgement"
		if m.progress.Acked >= 0 {
			acked = fmt.Sprintf("%d commands acknowledged", m.progress.Acked+1)
		}
		content := fmt.Sprintf("%s %s  %s %s  %s %s",
			labelStyle.Render("Progress:"), valueStyle.Render(acked),
			labelStyle.Render("Pen:"), valueStyle.Render(m.progress.Pen.String()),
			labelStyle.Render("Elapsed:"), valueStyle.Render(time.Since(m.started).Round(time.Second).String()))
		s.WriteString(boxStyle.Width(m.width - 4).Render(content))
		s.WriteString("\n\n")
		s.WriteString(headerStyle.Render("Esc aborts between commands"))

	case stageDone:
		s.WriteString(labelStyle.Render("Run finished"))
		s.WriteString("\n\n")
		outcome := valueStyle
		if m.runErr != nil || m.result.State != stream.Completed {
			outcome = errorStyle
		}
		text := m.result.String()
		if m.runErr != nil {
			text = m.runErr.Error()
		}
		s.WriteString(boxStyle.Width(m.width - 4).Render(outcome.Render(text)))
		s.WriteString("\n\n")
		s.WriteString(headerStyle.Render("Enter returns to the menu"))
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderEvents(labelStyle, headerStyle, errorStyle, boxStyle))
	return s.String()
}

func (m menuModel) renderEvents(labelStyle, headerStyle, errorStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	startIdx := len(m.events) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.events) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.events); i++ {
			entry := m.events[i]
			style := headerStyle
			if entry.isError {
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(entry.message)))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
