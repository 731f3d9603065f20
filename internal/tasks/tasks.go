package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/services"
	"github.com/desertthunder/musive/internal/shared"
	"golang.org/x/time/rate"
)

// ClientSource hands out Spotify clients bound to a user's stored credential.
//
// Implemented by [services.TrackSource].
type ClientSource interface {
	Client(ctx context.Context, userID string) (*services.SpotifyService, error)
}

// FavoriteAdder records favorites. Implemented by repositories.FavoriteRepository.
type FavoriteAdder interface {
	Add(userID, songID string) (*models.Favorite, error)
}

// ImportOpts configures a library import.
type ImportOpts struct {
	PageSize  int     // Tracks per request (default: 50, the upstream maximum)
	MaxSongs  int     // Stop after this many songs, zero imports everything
	RateLimit float64 // Page requests per second (default: 2)
	Favorite  bool    // Also favorite every imported song
}

// ImportResult summarizes a library import.
type ImportResult struct {
	Pages     int           // Page requests that succeeded
	Total     int           // Library size reported upstream
	Imported  int           // Songs written to the catalog
	Skipped   int           // Entries without a track ID (local files, removed tracks)
	Favorited int           // Favorites recorded when ImportOpts.Favorite is set
	Songs     []models.Song // Imported songs in library order
}

// LibraryEngine imports a user's Spotify library into the local catalog.
type LibraryEngine struct {
	source    ClientSource
	songs     services.SongCacher
	favorites FavoriteAdder
	retry     services.RetryPolicy
}

// NewLibraryEngine creates a LibraryEngine. favorites may be nil when imports never favorite.
func NewLibraryEngine(source ClientSource, songs services.SongCacher, favorites FavoriteAdder, retry services.RetryPolicy) *LibraryEngine {
	if retry.MaxAttempts == 0 {
		retry = services.DefaultRetryPolicy()
	}
	return &LibraryEngine{source: source, songs: songs, favorites: favorites, retry: retry}
}

// Import pages through userID's saved tracks and caches them.
//
// Unlike the request path, failures are returned: an import that cannot reach Spotify
// reports why instead of silently producing fallback data. A partial result accompanies
// any error raised after the first page.
func (e *LibraryEngine) Import(ctx context.Context, prog chan<- ProgressUpdate, userID string, opts ImportOpts) (*ImportResult, error) {
	if e.source == nil || e.songs == nil {
		return nil, fmt.Errorf("%w: library import not configured", shared.ErrServiceUnavailable)
	}
	if opts.Favorite && e.favorites == nil {
		return nil, fmt.Errorf("%w: favorites store", shared.ErrMissingArgument)
	}
	if opts.PageSize <= 0 || opts.PageSize > 50 {
		opts.PageSize = 50
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	client, err := e.source.Client(ctx, userID)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	result := &ImportResult{Songs: []models.Song{}}

	for offset := 0; ; {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		sendProgress(prog, fetchPageUpdate(result.Pages+1, offset, result.Total))
		page, err := services.WithRetry(ctx, e.retry, func(ctx context.Context) (*services.SpotifyPaginatedTracks, error) {
			return client.SavedTracks(ctx, opts.PageSize, offset)
		})
		if err != nil {
			return result, fmt.Errorf("failed to fetch saved tracks at offset %d: %w", offset, err)
		}
		result.Pages++
		result.Total = page.Total

		batch := make([]models.Song, 0, len(page.Items))
		for _, item := range page.Items {
			if opts.MaxSongs > 0 && result.Imported+len(batch) >= opts.MaxSongs {
				break
			}
			if item.Track.ID == "" {
				result.Skipped++
				continue
			}
			batch = append(batch, services.ToSong(item.Track))
		}

		if len(batch) > 0 {
			if err := e.songs.CacheSongs(batch); err != nil {
				return result, fmt.Errorf("failed to cache songs: %w", err)
			}
			result.Imported += len(batch)
			result.Songs = append(result.Songs, batch...)
			sendProgress(prog, cachedSongsUpdate(result.Imported, page.Total, batch))
		}

		if opts.Favorite {
			for _, song := range batch {
				if _, err := e.favorites.Add(userID, song.ID); err != nil {
					return result, fmt.Errorf("failed to favorite %s: %w", song.ID, err)
				}
				result.Favorited++
				sendProgress(prog, favoritedUpdate(result.Favorited, page.Total, song))
			}
		}

		offset += len(page.Items)
		switch {
		case page.Next == nil || len(page.Items) == 0:
			return result, nil
		case opts.MaxSongs > 0 && result.Imported >= opts.MaxSongs:
			return result, nil
		}
	}
}
