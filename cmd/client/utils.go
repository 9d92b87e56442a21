package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/openmined/songbox/internal/version"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func showSongBoxHeader(w io.Writer) {
	fmt.Fprintln(w, cyan.Bold(true).Render(version.ShortWithApp()))
}

// field renders a "key: value" row with an aligned, dimmed key
func field(key string, value any) string {
	return fmt.Sprintf("%s %v", gray.Width(14).Render(key+":"), value)
}
