// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles database initialization and config scaffolding.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// playlistCommand handles playlist creation and updates.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Create and update audio playlists",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Upload audio files as a new playlist",
				Arguments: []cli.Argument{
					&cli.StringArgs{
						Name: "files",
						Min:  1,
						Max:  -1,
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Playlist title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image URL",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "update",
				Usage: "Replace the contents of an existing playlist",
				Arguments: []cli.Argument{
					&cli.StringArgs{
						Name: "files",
						Min:  1,
						Max:  -1,
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to update",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Playlist title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image URL",
					},
				},
				Action: r.PlaylistUpdate,
			},
			{
				Name:   "list",
				Usage:  "List playlists in the library",
				Flags:  outputFlags(),
				Action: r.PlaylistList,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV, Markdown, plain text, or JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown, text, json)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory path",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// iconsCommand handles icon matching and the embedding cache.
func iconsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "icons",
		Usage: "Match playlist tracks to display icons",
		Commands: []*cli.Command{
			{
				Name:  "regenerate",
				Usage: "Re-run icon matching for a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Job title shown in the queue",
					},
				},
				Action: r.IconsRegenerate,
			},
			{
				Name:   "stats",
				Usage:  "Show icon embedding cache statistics",
				Flags:  outputFlags(),
				Action: r.IconsStats,
			},
			{
				Name:   "clear-cache",
				Usage:  "Drop the cached icon embeddings",
				Action: r.IconsClearCache,
			},
		},
	}
}

// queueCommand inspects and monitors the job queue.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect the job queue and history",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the point-in-time queue snapshot",
				Flags:  outputFlags(),
				Action: r.QueueStatus,
			},
			{
				Name:  "history",
				Usage: "Show completed and failed jobs, newest first",
				Flags: append(outputFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to show",
						Value: 50,
					},
				),
				Action: r.QueueHistory,
			},
			{
				Name:   "clear",
				Usage:  "Clear the persisted job history",
				Action: r.QueueClear,
			},
			{
				Name:    "watch",
				Aliases: []string{"ui", "tui"},
				Usage:   "Launch the interactive queue monitor",
				Action:  r.Watch,
			},
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}
