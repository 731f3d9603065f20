// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/musive/internal/formatter"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func emailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Email of the musive user",
		Required: true,
	}
}

// setupCommand handles database setup and migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the musive HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.host and server.port)",
			},
		},
		Action: r.Serve,
	}
}

// userCommand manages accounts and session tokens.
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users and session tokens",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a user",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
				},
				Action: r.UserCreate,
			},
			{
				Name:  "token",
				Usage: "Issue a session token for a user",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
				},
				Action: r.UserToken,
			},
			{
				Name:  "list",
				Usage: "List users",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.UserList,
			},
		},
	}
}

// spotifyCommand handles linking Spotify accounts.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:  "auth",
				Usage: "Link a Spotify account to a user using OAuth2",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
				},
				Action: r.SpotifyAuth,
			},
			{
				Name:  "status",
				Usage: "Show the Spotify account linked to a user",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
				},
				Action: r.SpotifyStatus,
			},
		},
	}
}

// libraryCommand handles importing saved tracks.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Spotify library operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import saved tracks into the local catalog",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
					&cli.IntFlag{
						Name:  "max",
						Usage: "Stop after this many songs (0 imports everything)",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Tracks per request",
						Value: 50,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Page requests per second",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  "favorite",
						Usage: "Also favorite every imported song",
					},
				},
				Action: r.LibraryImport,
			},
		},
	}
}

// playlistsCommand handles listing and exporting playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a user's playlists",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Flags: []cli.Flag{
					configFlag(),
					emailFlag(),
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist ID to export (repeatable, default: all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: musive_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "cover",
						Usage: "Download cover art for markdown exports",
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// playCommand launches the terminal player.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"tui"},
		Usage:   "Launch the interactive terminal player",
		Flags: []cli.Flag{
			configFlag(),
			emailFlag(),
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file path",
				Value: "./tmp/musive-tui.log",
			},
		},
		Action: r.Play,
	}
}
