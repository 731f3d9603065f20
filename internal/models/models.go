package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/musive/internal/shared"
)

// Model is implemented by every entity written through a repository.
type Model interface {
	Validate() error // Validate checks field invariants before a write
}

// UnknownArtist names songs whose upstream record carries no artist.
const UnknownArtist = "Unknown Artist"

// ArtistRef is the artist summary embedded in a [Song].
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Song is the canonical track representation used throughout the system regardless of upstream origin.
//
// Duration is in whole seconds. HasPreview is true exactly when AudioURL is non-empty.
type Song struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Duration   int       `json:"duration"`
	AudioURL   string    `json:"audio_url"`
	ImageURL   string    `json:"image_url"`
	Artist     ArtistRef `json:"artists"`
	ArtistID   string    `json:"artist_id"`
	HasPreview bool      `json:"hasPreview"`
	SpotifyURI string    `json:"spotifyUri,omitempty"`
}

// NewSong builds a Song with HasPreview and ArtistID derived from the other fields.
func NewSong(id, title string, duration int, audioURL, imageURL string, artist ArtistRef, spotifyURI string) Song {
	if artist.Name == "" {
		artist.Name = UnknownArtist
	}
	return Song{
		ID:         id,
		Title:      title,
		Duration:   duration,
		AudioURL:   audioURL,
		ImageURL:   imageURL,
		Artist:     artist,
		ArtistID:   artist.ID,
		HasPreview: audioURL != "",
		SpotifyURI: spotifyURI,
	}
}

func (s Song) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrValidation)
	}
	if s.Duration < 0 {
		return fmt.Errorf("%w: song %s has negative duration %d", shared.ErrValidation, s.ID, s.Duration)
	}
	if s.HasPreview != (s.AudioURL != "") {
		return fmt.Errorf("%w: song %s preview flag disagrees with audio url", shared.ErrValidation, s.ID)
	}
	return nil
}

// Length returns the song duration as a [time.Duration].
func (s Song) Length() time.Duration {
	return time.Duration(s.Duration) * time.Second
}

// Playable reports whether some engine could play the song.
func (s Song) Playable() bool {
	return s.HasPreview || s.SpotifyURI != ""
}

// Matches reports whether query is a case-insensitive substring of the title or artist name.
func (s Song) Matches(query string) bool {
	return shared.MatchesSearch(query, s.Title, s.Artist.Name)
}

// Artist is read-only artist metadata sourced externally.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
}

func (a Artist) Validate() error {
	if a.ID == "" || strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: artist id and name are required", shared.ErrValidation)
	}
	return nil
}

// Ref returns the embedded form of the artist.
func (a Artist) Ref() ArtistRef {
	return ArtistRef{ID: a.ID, Name: a.Name}
}
