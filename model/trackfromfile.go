package model

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dhowden/tag"
)

// this file implements a Track contributor that
// read track metadata from a audio file.
//
// Only Title and FilePath are filled. Duration is not part of the tags,
// callers set it (or leave it 0).
func TrackFromAudioFile(path string) (*Track, error) {
	// open file
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	track := &Track{FilePath: path}

	// read metadata. Files without tags are still tracks.
	if m, err := tag.ReadFrom(f); err == nil {
		track.Title = clip(strings.TrimSpace(m.Title()), MaxTitleLen)
	}

	if track.Title == "" {
		track.Title = TitleFromPath(path)
	}

	return track, nil
}

// TitleFromPath returns the base name of path without extension,
// cut to MaxTitleLen characters.
func TitleFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return clip(name, MaxTitleLen)
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
