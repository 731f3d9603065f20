// Package ui implements an interactive terminal player using bubbletea's Elm architecture.
//
// The TUI shows one collection at a time:
//  1. [SongsView] : The catalog, with search-as-you-type on /
//  2. [FavoritesView] : The session user's favorites
//  3. [PlaylistsView] : Owned playlists, enter opens [PlaylistSongsView]
//  4. [ArtistsView] : Artists, enter searches their songs
//
// Pressing enter on a song activates that collection: a fresh [player.Controller] takes
// the collection as its queue and is handed to a [Player] built by the [PlayerFactory].
// Playing from the same collection again reuses the controller.
//
// Search responses are tagged by a [player.Sequencer] so a slow reply never
// overwrites a newer one. Controller transitions arrive as messages through a
// buffered channel and refresh the now-playing bar.
package ui
