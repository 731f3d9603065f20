// Package models defines the domain entities of the musive catalog and player.
//
// Catalog entities are read-only views of upstream or locally cached data:
//   - [Song] : canonical track shape shared by every source
//   - [Artist] : artist metadata
//
// User-owned entities are persisted in SQLite through internal/repositories:
//   - [User] : identity subject for session tokens
//   - [Playlist] and [PlaylistSong] : ordered, owner-scoped song collections
//   - [Favorite] : unique (user, song) pair
//   - [SpotifyCredential] : stored upstream access for a user
//
// Every persisted entity implements [Model].
package models
