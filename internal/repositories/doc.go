// Package repositories implements SQLite persistence for all domain entities.
//
// Users and playlists carry per-table sequence numbers for stable ordering and are soft deleted via deleted_at.
// Songs and artists form a local catalog cache populated from upstream results or library imports.
// Favorites and playlist membership are deduplicated by UNIQUE constraints, so repeated writes are idempotent.
//
// Key Implementations:
//   - [UserRepository] : user accounts with email lookups
//   - [SongRepository] and [ArtistRepository] : catalog cache with substring search
//   - [PlaylistRepository] : owner-scoped playlists and their ordered songs
//   - [FavoriteRepository] : per-user favorite songs
//   - [CredentialRepository] : stored Spotify tokens
//
// Lookups that fail ownership checks return the same not-found errors as missing rows.
package repositories
