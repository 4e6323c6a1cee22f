package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/flier268/Minecraft-updater/internal/client/sync"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func styleFor(c sync.Color) lipgloss.Style {
	switch c {
	case sync.ColorInfo:
		return cyan
	case sync.ColorSuccess:
		return green
	case sync.ColorWarning:
		return yellow
	case sync.ColorError:
		return red
	default:
		return lipgloss.NewStyle()
	}
}
