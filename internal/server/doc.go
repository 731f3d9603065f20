// Package server provides HTTP routing, middleware, JSON responses and OAuth callback handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first).
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /songs", "DELETE /playlists/{id}"),
// so mismatched methods get 405 from the mux itself.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter,
// exchanges the code for a token and sends the result through a channel. Only the first callback is processed.
//
// The CLI starts a temporary server on the redirect URI's host, waits for one result, and shuts it down.
//
// # Handler Interface
//
// Custom handlers implement [Handler], which wraps [http.Handler] and lists the route patterns it serves.
package server
