package tui

import (
	"fmt"
	"strings"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/session"
	"github.com/charmbracelet/lipgloss"
)

// Cell glyphs, two columns wide so the board keeps roughly square cells.
const (
	glyphEmpty = "  "
	glyphHead  = "██"
	glyphBody  = "▓▓"
	glyphFood  = "<>"
)

var (
	lcdDark  = lipgloss.Color("#43523d")
	lcdLight = lipgloss.Color("#c7f0d8")

	boardStyle = lipgloss.NewStyle().
			Foreground(lcdDark).
			Background(lcdLight).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lcdDark)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lcdDark)
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// Render draws a full frame for snap.
func Render(snap session.Snapshot, demo bool) string {
	header := headerStyle.Render(fmt.Sprintf("SCORE %04d   HI %04d   SPD %.1f", snap.Score, snap.HighScore, snap.Speed))
	board := boardStyle.Render(strings.Join(Board(snap), "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, board, hintStyle.Render(status(snap, demo)))
}

// Board returns one string per field row.
func Board(snap session.Snapshot) []string {
	grid := make([][]string, game.Height)
	for y := range grid {
		grid[y] = make([]string, game.Width)
		for x := range grid[y] {
			grid[y][x] = glyphEmpty
		}
	}
	if snap.Food != nil && game.InBounds(*snap.Food) {
		grid[snap.Food.Y][snap.Food.X] = glyphFood
	}
	for i := len(snap.Snake) - 1; i >= 0; i-- {
		p := snap.Snake[i]
		if !game.InBounds(p) {
			continue
		}
		if i == 0 {
			grid[p.Y][p.X] = glyphHead
		} else {
			grid[p.Y][p.X] = glyphBody
		}
	}

	rows := make([]string, game.Height)
	for y, row := range grid {
		rows[y] = strings.Join(row, "")
	}
	if msg := banner(snap.Phase); msg != "" {
		rows[game.Height/2] = center(msg, game.Width*len(glyphEmpty))
	}
	return rows
}

func banner(p session.Phase) string {
	switch p {
	case session.Menu:
		return "S N A K E"
	case session.Paused:
		return "PAUSED"
	case session.GameOver:
		return "GAME OVER"
	}
	return ""
}

func status(snap session.Snapshot, demo bool) string {
	var s string
	switch snap.Phase {
	case session.Menu:
		s = "enter: start   q: quit"
	case session.Playing:
		s = "arrows/wasd: turn   p: pause   q: quit"
	case session.Paused:
		s = "p: resume   q: quit"
	case session.GameOver:
		s = fmt.Sprintf("scored %d   enter: menu   q: quit", snap.Score)
	}
	if demo {
		s = "[autopilot] " + s
	}
	return s
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-left-len(s))
}
