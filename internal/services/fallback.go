package services

import (
	"github.com/desertthunder/musive/internal/models"
	"github.com/desertthunder/musive/internal/shared"
)

const demoAudio = "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav"

var fallbackArtists = []models.Artist{
	{ID: "artist-1", Name: "The Weeknd", ImageURL: "https://i.scdn.co/image/ab6761610000e5eb8ae7f2aaa9817a704a87ea36", Genres: []string{"pop", "r&b"}, Popularity: 95},
	{ID: "artist-2", Name: "Dua Lipa", ImageURL: "https://i.scdn.co/image/ab6761610000e5eb2107f7b5a9c1e5e45a8d6b6b", Genres: []string{"pop", "dance"}, Popularity: 90},
	{ID: "artist-3", Name: "Harry Styles", Genres: []string{"pop"}, Popularity: 88},
	{ID: "artist-4", Name: "Ed Sheeran", Genres: []string{"pop", "singer-songwriter"}, Popularity: 89},
	{ID: "artist-5", Name: "Clean Bandit", Genres: []string{"dance", "electropop"}, Popularity: 74},
}

var fallbackSongs = []models.Song{
	models.NewSong("demo-1", "Blinding Lights", 201, demoAudio,
		"https://i.scdn.co/image/ab67616d0000b2738863bc11d2aa12b54f5aeb36", fallbackArtists[0].Ref(), ""),
	models.NewSong("demo-2", "Levitating", 203, demoAudio,
		"https://i.scdn.co/image/ab67616d0000b2738b58d20f1b772edebca33a3b", fallbackArtists[1].Ref(), ""),
	models.NewSong("demo-3", "Watermelon Sugar", 174, demoAudio,
		"https://i.scdn.co/image/ab67616d0000b273adaa848e5c4e6b1b0e47cd92", fallbackArtists[2].Ref(), ""),
	models.NewSong("demo-4", "Perfect", 263, demoAudio,
		"https://i.scdn.co/image/ab67616d0000b273ba5db46f4b838ef6027e6f96", fallbackArtists[3].Ref(), ""),
	models.NewSong("demo-5", "Rather Be", 228, demoAudio,
		"https://i.scdn.co/image/ab67616d0000b273d0e83a20e1e3e5a0b3e9b3b3", fallbackArtists[4].Ref(), ""),
}

// FallbackSongs returns the fixed demo songs whose title or artist contains search.
//
// The result is a fresh slice in a stable order, so callers may modify it.
func FallbackSongs(search string) []models.Song {
	songs := make([]models.Song, 0, len(fallbackSongs))
	for _, s := range fallbackSongs {
		if s.Matches(search) {
			songs = append(songs, s)
		}
	}
	return songs
}

// FallbackArtists returns the fixed demo artists whose name contains search.
func FallbackArtists(search string) []models.Artist {
	artists := make([]models.Artist, 0, len(fallbackArtists))
	for _, a := range fallbackArtists {
		if shared.MatchesSearch(search, a.Name) {
			a.Genres = append([]string(nil), a.Genres...)
			artists = append(artists, a)
		}
	}
	return artists
}
