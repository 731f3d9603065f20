package ui

import (
	"fmt"

	"github.com/desertthunder/musive/internal/player"
	"github.com/desertthunder/musive/internal/shared"
)

func stateIcon(s player.State) string {
	switch s {
	case player.Playing:
		return "▶"
	case player.Paused:
		return "⏸"
	default:
		return "■"
	}
}

// renderNowPlaying draws the bar shown under every view.
func renderNowPlaying(status player.Status, engine string, width int) string {
	bar := styles.bar
	if width > 0 {
		bar = bar.Width(width)
	}

	song, ok := status.Song()
	if !ok {
		return bar.Render(styles.help.Render("Nothing playing"))
	}

	heart := "♡"
	if status.Favorite {
		heart = "♥"
	}
	if engine == "" {
		engine = player.Unavailable.String()
	}

	line := fmt.Sprintf("%s %s - %s  %s / %s  vol %d  [%s] %s",
		stateIcon(status.State),
		styles.ok.Render(song.Title),
		song.Artist.Name,
		shared.FormatDuration(int(status.Elapsed.Seconds())),
		shared.FormatDuration(song.Duration),
		status.Volume,
		engine,
		heart,
	)
	return bar.Render(line)
}
