package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	probeSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	probeElapsedStyle = lipgloss.NewStyle().Faint(true)
	probeLateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// probeWait describes the request the spinner is waiting on.
type probeWait struct {
	pending domain.PendingRequest
	timeout time.Duration
}

// probeResolvedMsg ends the wait with the matched or timed-out event.
type probeResolvedMsg struct {
	event *domain.Event
	err   error
}

type probeSpinnerModel struct {
	spinner spinner.Model
	wait    probeWait
	now     func() time.Time
	elapsed time.Duration
	await   tea.Cmd
	event   *domain.Event
	err     error
	done    bool
}

func newProbeSpinnerModel(wait probeWait, now func() time.Time, await tea.Cmd) probeSpinnerModel {
	return probeSpinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(probeSpinnerStyle)),
		wait:    wait,
		now:     now,
		await:   await,
	}
}

func (m probeSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.await)
}

func (m probeSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.elapsed = m.now().Sub(m.wait.pending.SentAt)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case probeResolvedMsg:
		m.done = true
		m.event = msg.event
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m probeSpinnerModel) View() string {
	if m.done {
		return ""
	}

	elapsed := max(m.elapsed, 0)
	clock := fmt.Sprintf("%d/%d ms", elapsed.Milliseconds(), m.wait.timeout.Milliseconds())
	if elapsed > m.wait.timeout {
		clock = probeLateStyle.Render(clock)
	} else {
		clock = probeElapsedStyle.Render(clock)
	}

	return fmt.Sprintf("%s %s req_id=%s %s", m.spinner.View(), m.wait.pending.Command, m.wait.pending.ID, clock)
}

// runProbeSpinner animates on output until await reports how the request ended.
func runProbeSpinner(ctx context.Context, output io.Writer, wait probeWait, now func() time.Time, await func(context.Context) (*domain.Event, error)) (*domain.Event, error) {
	awaitCmd := func() tea.Msg {
		event, err := await(ctx)
		return probeResolvedMsg{event: event, err: err}
	}

	p := tea.NewProgram(
		newProbeSpinnerModel(wait, now, awaitCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	result, ok := final.(probeSpinnerModel)
	if !ok {
		return nil, fmt.Errorf("unexpected final spinner model type %T", final)
	}
	return result.event, result.err
}
