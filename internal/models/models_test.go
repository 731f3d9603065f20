package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/musive/internal/shared"
)

func TestSong(t *testing.T) {
	t.Run("NewSong Derives Preview Flag", func(t *testing.T) {
		tests := []struct {
			name     string
			audioURL string
			want     bool
		}{
			{name: "with preview", audioURL: "https://p.scdn.co/mp3-preview/abc", want: true},
			{name: "without preview", audioURL: "", want: false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := NewSong("s1", "Song", 200, tt.audioURL, "", ArtistRef{ID: "a1", Name: "Artist"}, "")
				if s.HasPreview != tt.want {
					t.Errorf("expected HasPreview=%v, got %v", tt.want, s.HasPreview)
				}
				if !s.HasPreview && s.AudioURL != "" {
					t.Error("songs without preview must have an empty audio url")
				}
				if err := s.Validate(); err != nil {
					t.Errorf("expected valid song, got %v", err)
				}
			})
		}
	})

	t.Run("NewSong Unknown Artist", func(t *testing.T) {
		s := NewSong("s1", "Song", 10, "", "", ArtistRef{}, "")
		if s.Artist.Name != UnknownArtist {
			t.Errorf("expected %q, got %q", UnknownArtist, s.Artist.Name)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name string
			song Song
		}{
			{name: "negative duration", song: Song{ID: "s1", Duration: -1}},
			{name: "preview flag without url", song: Song{ID: "s1", HasPreview: true}},
			{name: "url without preview flag", song: Song{ID: "s1", AudioURL: "x"}},
			{name: "missing id", song: Song{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.song.Validate(); !errors.Is(err, shared.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	t.Run("Matches", func(t *testing.T) {
		s := NewSong("s1", "Blinding Lights", 201, "", "", ArtistRef{ID: "a", Name: "The Weeknd"}, "")
		for _, q := range []string{"", "weeknd", "BLINDING", "  lights "} {
			if !s.Matches(q) {
				t.Errorf("expected %q to match", q)
			}
		}
		if s.Matches("dua") {
			t.Error("expected dua not to match")
		}
	})

	t.Run("Playable", func(t *testing.T) {
		if (Song{ID: "x"}).Playable() {
			t.Error("song without preview or uri should not be playable")
		}
		if !(Song{ID: "x", SpotifyURI: "spotify:track:x"}).Playable() {
			t.Error("song with uri should be playable")
		}
	})
}

func TestPlaylist(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		if err := NewPlaylist("u1", "   ", "").Validate(); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected blank name to fail, got %v", err)
		}
		if err := NewPlaylist("", "Mix", "").Validate(); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected missing owner to fail, got %v", err)
		}
		if err := NewPlaylist("u1", " Mix ", "").Validate(); err != nil {
			t.Errorf("expected valid playlist, got %v", err)
		}
	})

	t.Run("TotalDuration", func(t *testing.T) {
		p := NewPlaylist("u1", "Mix", "")
		p.Songs = []Song{{ID: "a", Duration: 60}, {ID: "b", Duration: 90}}
		if got := p.TotalDuration(); got != 150*time.Second {
			t.Errorf("expected 150s, got %v", got)
		}
	})
}

func TestSpotifyCredential(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	buffer := 5 * time.Minute

	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{name: "expired", expires: now.Add(-time.Minute), want: true},
		{name: "inside buffer", expires: now.Add(4 * time.Minute), want: true},
		{name: "at buffer edge", expires: now.Add(buffer), want: true},
		{name: "fresh", expires: now.Add(time.Hour), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &SpotifyCredential{UserID: "u", AccessToken: "a", ExpiresAt: tt.expires}
			if got := c.ExpiresWithin(now, buffer); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
