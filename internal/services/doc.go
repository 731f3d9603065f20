// Package services connects musive to the outside world.
//
// # Spotify
//
// [SpotifyService] wraps the Spotify Web API with [oauth2] for the authorization code flow and token refresh.
// Responses are mapped to the canonical [models.Song] and [models.Artist] with [ToSong] and [ToArtist].
//
// # Track Source
//
// [TrackSource] resolves a caller's songs and artists. It looks up the stored credential through a
// [CredentialStore], refreshes it when it is inside the refresh buffer, and issues one upstream query
// wrapped in [WithRetry]. Any failure degrades to [FallbackSongs] or [FallbackArtists]; it never returns an error.
//
// # Error Handling
//
// Upstream errors use the shared taxonomy:
//   - [shared.ErrRateLimited] : HTTP 429, retried with exponential backoff
//   - [shared.ErrTokenExpired] : HTTP 401
//   - [shared.ErrAPIRequest] : transport failures and other non-2xx responses
//   - [shared.ErrUpstream] : retries exhausted
//
// # musive API
//
// [APIService] is the HTTP client the terminal front end uses to reach the collection endpoints.
package services
