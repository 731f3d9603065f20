// Package web serves the musive collection API: songs, artists, favorites and playlists as JSON.
//
// # Routes
//
//	GET    /health
//	GET    /songs?search=          session optional
//	GET    /artists?search=
//	GET    /favorites              session required
//	POST   /favorites              {"songId": "..."}
//	DELETE /favorites              {"songId": "..."}
//	GET    /playlists
//	POST   /playlists              {"name": "...", "description": "..."}
//	DELETE /playlists/{id}
//	POST   /playlists/{id}/songs   {"songId": "..."}
//	DELETE /playlists/{id}/songs   {"songId": "..."}
//
// # Sessions
//
// Callers identify themselves with an HS256 JWT whose subject is a user ID, sent either
// as "Authorization: Bearer <token>" or in the "session" cookie. Tokens are minted with
// [IssueToken] (see "musive user token").
//
// # Errors
//
// Failures are written as {"error": "..."} with a generic message. Playlists owned by
// another user are reported as 404, exactly like missing ones.
package web
