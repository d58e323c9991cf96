package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/raulshma/devbox-sub000/internal/engine"
	"github.com/raulshma/devbox-sub000/internal/pattern"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/raulshma/devbox-sub000/internal/ui"
)

type Step int

const (
	StepCompute Step = iota
	StepExecute
	StepDone
)

var (
	titleStyle  = ui.TitleStyle
	statusStyle = ui.MutedStyle
	checkMark   = ui.SuccessStyle.Render(ui.IconSuccess)
)

// ErrQuit reports that the user quit before the batch ran
var ErrQuit = errors.New("quit before the batch ran")

type errMsg error

type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	engine   *engine.Engine
	paths    []string
	spec     pattern.Spec
	opts     types.ExecOptions
	state    Step
	spinner  spinner.Model
	viewport viewport.Model
	progress *ui.ProgressBar
	updates  chan progressMsg
	err      error
	logs     []string
	stopping bool

	// Data
	ops     []types.RenameOperation
	results []types.RenameResult
}

// NewModel builds the model for one batch. Cancelling ctx, or quitting while
// files are being renamed, stops the batch; operations not yet started are
// reported as failed.
func NewModel(ctx context.Context, e *engine.Engine, paths []string, spec pattern.Spec, opts types.ExecOptions) Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.ColorSecondary)

	vp := viewport.New(80, 10)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorMuted).
		PaddingRight(2)

	return Model{
		ctx:      ctx,
		cancel:   cancel,
		engine:   e,
		paths:    paths,
		spec:     spec,
		opts:     opts,
		state:    StepCompute,
		spinner:  s,
		viewport: vp,
		updates:  make(chan progressMsg, 16),
		logs:     []string{fmt.Sprintf("Renaming %d files...", len(paths))},
	}
}

// Results returns the per-file results once the batch has run
func (m Model) Results() []types.RenameResult {
	return m.results
}

// Err returns the error that stopped the batch, if any
func (m Model) Err() error {
	return m.err
}

// Finished reports whether the batch ran to the end and its results are
// complete.
func (m Model) Finished() bool {
	return m.state == StepDone
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.computeCmd,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			if m.state != StepExecute {
				m.cancel()
				return m, tea.Quit
			}
			// Renames in flight finish; the rest fail as cancelled and
			// the program quits once the results arrive.
			if !m.stopping {
				m.stopping = true
				m.cancel()
				m.logs = append(m.logs, "Stopping after the renames in flight...")
			}
		}
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case errMsg:
		m.cancel()
		m.err = msg
		m.logs = append(m.logs, fmt.Sprintf("Error: %v", msg))
		return m, tea.Quit
	case computeMsg:
		m.ops = msg.ops
		m.logs = append(m.logs, fmt.Sprintf("Computed %d new names", len(m.ops)))
		m.progress = ui.NewProgressBar(len(m.ops), "Renaming")
		m.state = StepExecute
		cmds = append(cmds, m.executeCmd, waitForProgress(m.updates))
	case progressMsg:
		if m.progress != nil {
			m.progress.SetCurrent(msg.done)
		}
		cmds = append(cmds, waitForProgress(m.updates))
	case executeMsg:
		m.cancel()
		m.results = msg.results
		s := types.Summarize(m.results)
		m.logs = append(m.logs, fmt.Sprintf("Renamed %d, skipped %d, failed %d", s.Renamed, s.Skipped, s.Failed))
		for _, r := range m.results {
			if r.Error != "" {
				m.logs = append(m.logs, fmt.Sprintf("  %s: %s", r.SourcePath, r.Error))
			}
		}
		m.state = StepDone
		cmds = append(cmds, tea.Quit)
	}

	m.viewport.SetContent(strings.Join(m.logs, "\n"))
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	s := "\n"
	s += titleStyle.Render("Batch Renamer") + "\n\n"

	steps := []string{"Computing names", "Renaming files"}
	for i, step := range steps {
		if Step(i) < m.state {
			s += fmt.Sprintf(" %s %s\n", checkMark, step)
		} else if Step(i) == m.state {
			s += fmt.Sprintf(" %s %s\n", m.spinner.View(), step)
		} else {
			s += fmt.Sprintf("   %s\n", statusStyle.Render(step))
		}
	}

	if m.progress != nil {
		s += "\n" + m.progress.View() + "\n"
	}

	s += "\n"
	s += m.viewport.View()
	switch {
	case m.stopping:
		s += "\nStopping...\n"
	case m.state == StepExecute:
		s += "\nPress q to stop after the renames in flight.\n"
	default:
		s += "\nPress q to quit.\n"
	}

	return s
}

// Run drives the model to completion and returns its final state
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}

// Commands and Messages

type computeMsg struct {
	ops []types.RenameOperation
}

func (m Model) computeCmd() tea.Msg {
	ops, err := m.engine.ComputeBatch(m.paths, m.spec)
	if err != nil {
		return errMsg(err)
	}
	return computeMsg{ops: ops}
}

type progressMsg struct {
	done  int
	total int
}

// waitForProgress delivers the next progress update, or nothing once the
// batch has finished and the channel is closed.
func waitForProgress(updates <-chan progressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

type executeMsg struct {
	results []types.RenameResult
}

func (m Model) executeCmd() tea.Msg {
	defer close(m.updates)

	opts := m.opts
	opts.Progress = func(done, total int) {
		// Drop updates the UI has not caught up with; the next one supersedes them.
		select {
		case m.updates <- progressMsg{done: done, total: total}:
		default:
		}
	}

	results, err := m.engine.ExecuteBatch(m.ctx, m.ops, opts)
	if err != nil {
		return errMsg(err)
	}
	return executeMsg{results: results}
}
