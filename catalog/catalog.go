/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package catalog loads the song list games are drawn from.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Seednode/hitline/game"
)

//go:embed songs.json
var defaultSongs []byte

var (
	ErrDuplicateID = errors.New("duplicate song id")
	ErrInvalidSong = errors.New("invalid song")
)

type Catalog struct {
	songs []game.Song
}

// Default returns the catalog bundled into the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultSongs))
}

// Load reads a catalog from path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// Parse decodes a JSON array of songs and validates every entry.
func Parse(r io.Reader) (*Catalog, error) {
	var songs []game.Song

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&songs); err != nil {
		return nil, fmt.Errorf("could not decode catalog: %w", err)
	}

	for i := range songs {
		songs[i].ID = strings.TrimSpace(songs[i].ID)
		songs[i].Title = strings.TrimSpace(songs[i].Title)
		songs[i].Artist = strings.TrimSpace(songs[i].Artist)

		if err := validate(songs[i]); err != nil {
			return nil, fmt.Errorf("song %d: %w", i, err)
		}
	}

	dupes := lo.FindDuplicatesBy(songs, func(s game.Song) string {
		return s.ID
	})
	if len(dupes) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, dupes[0].ID)
	}

	return &Catalog{songs: songs}, nil
}

func validate(s game.Song) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidSong)
	case s.Title == "":
		return fmt.Errorf("%w: %q has no title", ErrInvalidSong, s.ID)
	case s.Year <= 0:
		return fmt.Errorf("%w: %q has year %d", ErrInvalidSong, s.ID, s.Year)
	case s.Offset < 0:
		return fmt.Errorf("%w: %q has negative offset %d", ErrInvalidSong, s.ID, s.Offset)
	}

	return nil
}

// Songs returns a fresh copy, so every game gets its own pool.
func (c *Catalog) Songs() []game.Song {
	return slices.Clone(c.songs)
}

func (c *Catalog) Len() int {
	return len(c.songs)
}

// Span returns the earliest and latest release years in the catalog.
func (c *Catalog) Span() (first, last int) {
	if len(c.songs) == 0 {
		return 0, 0
	}

	years := lo.Map(c.songs, func(s game.Song, _ int) int {
		return s.Year
	})

	return lo.Min(years), lo.Max(years)
}
