// Package tasks runs the long library operations behind the CLI with real-time progress reporting.
//
// # Operations
//
//  1. [LibraryEngine.Import] : Saved tracks → local catalog
//     - Pages through the user's Spotify library, one rate limited request per page
//     - Retries rate limited pages with the upstream retry policy
//     - Caches every song so favorites and playlists can reference it
//     - Optionally favorites each imported song for the user
//
//  2. [PlaylistExporter.BulkExport] : Playlists → files
//     - Loads each owned playlist (all of them when no IDs are given)
//     - Exports through a worker pool using [formatter.Export]
//     - Tolerates per-playlist failures and writes a manifest summarizing the run
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default so a slow reader never stalls an operation.
package tasks
