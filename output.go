package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/songrec/internal/recommend"
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	artistStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// render formats a recommendation as "song_id: <id>, <title> by <artist>".
func render(rec recommend.Recommendation, verbose bool) string {
	line := fmt.Sprintf("%s %s, %s %s %s",
		labelStyle.Render("song_id:"),
		idStyle.Render(rec.SongID),
		titleStyle.Render(rec.Title),
		labelStyle.Render("by"),
		artistStyle.Render(rec.ArtistName),
	)
	if verbose {
		line += labelStyle.Render(fmt.Sprintf("  [%s, score %.3f]", rec.Strategy, rec.Score))
	}
	return line
}
