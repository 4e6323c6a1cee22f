package main

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/flier268/Minecraft-updater/internal/client/sync"
)

func update(t *testing.T, m syncModel, msg tea.Msg) syncModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(syncModel)
}

func TestSyncModelProgressIsMonotonic(t *testing.T) {
	m := newSyncModel()
	assert.Equal(t, 0.0, m.percent())

	m = update(t, m, progressMsg{current: 2, total: 4})
	assert.Equal(t, 0.5, m.percent())

	m = update(t, m, progressMsg{current: 1, total: 4})
	assert.Equal(t, 0.5, m.percent())
	assert.Contains(t, stripANSI(m.View()), "2/4")
}

func TestSyncModelKeepsLastLines(t *testing.T) {
	m := newSyncModel()
	for i := 0; i < 12; i++ {
		m = update(t, m, logMsg{text: string(rune('a' + i)), color: sync.ColorSuccess})
	}
	assert.Len(t, m.lines, m.maxLines)
	assert.Equal(t, "e", m.lines[0].text)
	assert.Equal(t, "l", m.lines[len(m.lines)-1].text)
}

func TestSyncModelDone(t *testing.T) {
	m := newSyncModel()
	next, cmd := m.Update(doneMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, next.(syncModel).done)
	assert.Equal(t, 1.0, next.(syncModel).percent())
}

func newTestView(fallback sync.Observer) *progressView {
	program := tea.NewProgram(newSyncModel(),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)
	return newProgressView(program, fallback)
}

func TestProgressViewStopHandsOverToFallback(t *testing.T) {
	var fallback []string
	view := newTestView(sync.Observer{
		OnLog: func(message string, _ sync.Color) { fallback = append(fallback, message) },
	})

	var userQuit atomic.Bool
	view.start(func() { userQuit.Store(true) })

	obs := view.observer()
	obs.OnLog("while running", sync.ColorInfo)
	obs.OnProgress(1, 2)

	view.stop()
	assert.False(t, userQuit.Load(), "stop is not a user quit")

	obs.OnLog("after stop", sync.ColorInfo)
	assert.Equal(t, []string{"after stop"}, fallback)

	// stopping twice does not block
	view.stop()
}

func TestProgressViewReportsUserQuit(t *testing.T) {
	view := newTestView(sync.Observer{})

	quit := make(chan struct{})
	view.start(func() { close(quit) })
	view.program.Quit()

	select {
	case <-quit:
	case <-time.After(5 * time.Second):
		t.Fatal("user quit not reported")
	}
	<-view.done
}
