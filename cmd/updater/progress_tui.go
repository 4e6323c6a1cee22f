package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/flier268/Minecraft-updater/internal/client/sync"
)

type progressMsg struct {
	current int
	total   int
}

type logMsg struct {
	text  string
	color sync.Color
}

type doneMsg struct{}

// syncModel renders the pass as a progress bar with the last few messages
// above it.
type syncModel struct {
	bar      progress.Model
	current  int
	total    int
	lines    []logMsg
	maxLines int
	done     bool
}

func newSyncModel() syncModel {
	return syncModel{
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		maxLines: 8,
	}
}

func (m syncModel) Init() tea.Cmd {
	return nil
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 10), 80)
	case progressMsg:
		// never move backwards
		if msg.current >= m.current {
			m.current, m.total = msg.current, msg.total
		}
	case logMsg:
		m.lines = append(m.lines, msg)
		if len(m.lines) > m.maxLines {
			m.lines = m.lines[len(m.lines)-m.maxLines:]
		}
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m syncModel) percent() float64 {
	if m.total <= 0 {
		if m.done {
			return 1
		}
		return 0
	}
	return float64(m.current) / float64(m.total)
}

func (m syncModel) View() string {
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(styleFor(l.color).Render(l.text))
		b.WriteByte('\n')
	}
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString(gray.Render(fmt.Sprintf("  %d/%d", m.current, m.total)))
	b.WriteByte('\n')
	return b.String()
}

// tuiObserver forwards engine events to a running program.
func tuiObserver(p *tea.Program) sync.Observer {
	return sync.Observer{
		OnProgress: func(current, total int) {
			p.Send(progressMsg{current: current, total: total})
		},
		OnLog: func(message string, color sync.Color) {
			p.Send(logMsg{text: message, color: color})
		},
	}
}

// progressView runs the progress program beside a pass. It can hand the
// terminal back early, after which events go to the fallback observer.
type progressView struct {
	program  *tea.Program
	fallback sync.Observer
	stopped  atomic.Bool
	done     chan struct{}
}

func newProgressView(program *tea.Program, fallback sync.Observer) *progressView {
	return &progressView{program: program, fallback: fallback, done: make(chan struct{})}
}

// start runs the program in the background. onUserQuit is called when the
// program ends without stop, i.e. the user closed it.
func (v *progressView) start(onUserQuit func()) {
	go func() {
		defer close(v.done)
		if _, err := v.program.Run(); err != nil {
			slog.Debug("progress view", "error", err)
		}
		if !v.stopped.Load() && onUserQuit != nil {
			onUserQuit()
		}
	}()
}

// stop ends the program and waits until the terminal is restored.
func (v *progressView) stop() {
	if !v.stopped.Swap(true) {
		v.program.Send(doneMsg{})
	}
	<-v.done
}

func (v *progressView) observer() sync.Observer {
	view := tuiObserver(v.program)
	pick := func() sync.Observer {
		if v.stopped.Load() {
			return v.fallback
		}
		return view
	}
	return sync.Observer{
		OnProgress: func(current, total int) {
			if o := pick(); o.OnProgress != nil {
				o.OnProgress(current, total)
			}
		},
		OnLog: func(message string, color sync.Color) {
			if o := pick(); o.OnLog != nil {
				o.OnLog(message, color)
			}
		},
	}
}
