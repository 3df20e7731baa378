package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lysyi3m/video-comb/app/progress"
)

const maxBarWidth = 72

type syncFunc func(ctx context.Context, sink progress.Sink) (int, error)

type eventMsg progress.Event

type doneMsg struct {
	count int
	err   error
}

// syncModel draws the progress of one synchronization. The first interrupt
// asks the run to stop, the second leaves immediately.
type syncModel struct {
	title    string
	bar      progressbar.Model
	event    progress.Event
	started  bool
	stopping bool
	done     bool
	count    int
	err      error
	cancel   context.CancelFunc
}

func newSyncModel(title string, cancel context.CancelFunc) syncModel {
	return syncModel{
		title:  title,
		bar:    progressbar.New(progressbar.WithDefaultGradient(), progressbar.WithWidth(40)),
		cancel: cancel,
	}
}

func (m syncModel) Init() tea.Cmd {
	return nil
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil
	case eventMsg:
		m.event = progress.Event(msg)
		m.started = true
		return m, nil
	case doneMsg:
		m.done = true
		m.count = msg.count
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.stopping {
				return m, tea.Quit
			}
			m.stopping = true
			m.cancel()
		}
	}
	return m, nil
}

func (m syncModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if !m.started {
		b.WriteString(mutedStyle.Render("starting..."))
		b.WriteString("\n")
		return b.String()
	}

	e := m.event
	fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render(fmt.Sprintf("step %d/%d", e.Step, e.Steps)), e.Message)
	b.WriteString(m.bar.ViewAs(e.Percent / 100))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("processed %d  skipped %d", e.Counters.Processed, e.Counters.Skipped)))

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorStyle.Render("failed: " + m.err.Error()))
		b.WriteString("\n")
	case m.done:
		b.WriteString(okStyle.Render(fmt.Sprintf("done: %d posts", m.count)))
		b.WriteString("\n")
	case m.stopping:
		b.WriteString(mutedStyle.Render("stopping, press again to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// runView runs do while the progress view follows its events.
func runView(ctx context.Context, op, source string, do syncFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newSyncModel(op+" "+source, cancel))
	sink := progress.SinkFunc(func(e progress.Event) {
		program.Send(eventMsg(e))
	})

	result := make(chan doneMsg, 1)
	go func() {
		n, err := do(ctx, sink)
		result <- doneMsg{count: n, err: err}
		program.Send(doneMsg{count: n, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress view failed: %w", err)
	}

	m, ok := final.(syncModel)
	if !ok || !m.done {
		// Left before the run finished; wait for it to unwind.
		cancel()
		res := <-result
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			return res.err
		}
		return context.Canceled
	}
	return m.err
}
