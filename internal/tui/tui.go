package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/patchsync/model"
	"github.com/sokinpui/patchsync/patchsync"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

const wordWrap = 100

// Task runs the sync and returns its report with the Markdown rendering of it.
type Task func() (*model.SyncReport, string, error)

// --- Messages ---
type summaryMsg struct {
	report   *model.SyncReport
	markdown string
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// --- Model ---
type Model struct {
	title    string
	task     Task
	spinner  spinner.Model
	state    state
	report   *model.SyncReport
	rendered string
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

// New returns a model that shows a spinner labelled title while task runs.
func New(title string, task Task) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		title:   title,
		task:    task,
		spinner: s,
		state:   stateProcessing,
	}
}

// Report is the finished sync report, or nil if the task failed or is
// still running.
func (m Model) Report() *model.SyncReport {
	return m.report
}

// Err is the task's error, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runTask)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case summaryMsg:
		m.state = stateSummary
		m.report = msg.report
		m.rendered = renderMarkdown(msg.markdown)
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		return fmt.Sprintf("%s %s", m.spinner.View(), m.title)
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m Model) renderSummary() string {
	var b strings.Builder
	b.WriteString(m.rendered)

	counts := m.report.Counts()
	parts := []string{successStyle.Render(fmt.Sprintf("%d succeeded", counts[model.StatusSuccess]))}
	if n := counts[model.StatusPartial]; n > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("%d partial", n)))
	}
	if n := counts[model.StatusFailed]; n > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d failed", n)))
	}
	if n := counts[model.StatusTargetMissing]; n > 0 {
		parts = append(parts, faintStyle.Render(fmt.Sprintf("%d missing", n)))
	}
	b.WriteString(headerStyle.Render("Done: "))
	b.WriteString(strings.Join(parts, faintStyle.Render(", ")))
	b.WriteString("\n")
	return b.String()
}

// renderMarkdown styles md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m Model) runTask() tea.Msg {
	report, markdown, err := m.task()
	if err != nil {
		if e, ok := err.(*patchsync.DetailedError); ok {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{report: report, markdown: markdown}
}
