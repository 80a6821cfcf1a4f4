package audiofilestore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenRelativeAndAbsolute(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "intro.mp3"), "ID3-not-really")
	a := NewAudioFileStore(dir)

	for _, p := range []string{"intro.mp3", filepath.Join(dir, "intro.mp3")} {
		audio, err := a.Open(context.Background(), p)
		if err != nil {
			t.Fatalf("Open(%q): unexpected error: %v", p, err)
		}
		data, _ := io.ReadAll(audio)
		audio.Close()
		if string(data) != "ID3-not-really" || audio.Size != int64(len(data)) {
			t.Fatalf("Open(%q): got %q (size %d)", p, data, audio.Size)
		}
	}
}

func TestOpenMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "folder.mp3"), 0755); err != nil {
		t.Fatal(err)
	}
	a := NewAudioFileStore(dir)

	for _, p := range []string{"nope.mp3", "/definitely/not/here.mp3", "folder.mp3"} {
		if _, err := a.Open(context.Background(), p); !errors.Is(err, ErrAudioNotFound) {
			t.Fatalf("Open(%q): expected ErrAudioNotFound, got %v", p, err)
		}
	}
}

func TestOpenRelativeEscape(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "secret.txt"), "do not serve")
	dir := filepath.Join(root, "audio")
	writeFile(t, filepath.Join(dir, "tour", "hall.mp3"), "x")
	a := NewAudioFileStore(dir)

	for _, p := range []string{"../secret.txt", "tour/../../secret.txt", ""} {
		if _, err := a.Open(context.Background(), p); !errors.Is(err, ErrAudioNotFound) {
			t.Fatalf("Open(%q): expected ErrAudioNotFound, got %v", p, err)
		}
	}

	audio, err := a.Open(context.Background(), "tour/../tour/hall.mp3")
	if err != nil {
		t.Fatalf("Open: unexpected error for a path inside FileDir: %v", err)
	}
	audio.Close()
}

func TestDefaultTitleFallsBackToFileName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Main Hall.mp3"), "no tags here")
	a := NewAudioFileStore(dir)

	if got := a.DefaultTitle(context.Background(), "Main Hall.mp3"); got != "Main Hall" {
		t.Fatalf("expected %q, got %q", "Main Hall", got)
	}
	if got := a.DefaultTitle(context.Background(), "missing/Garden.mp3"); got != "Garden" {
		t.Fatalf("expected %q, got %q", "Garden", got)
	}
}

func TestTracksFromDir(t *testing.T) {
	root := t.TempDir()
	tour := filepath.Join(root, "tour")
	writeFile(t, filepath.Join(tour, "02-hall.mp3"), "x")
	writeFile(t, filepath.Join(tour, "01-entrance.wav"), "x")
	writeFile(t, filepath.Join(tour, "notes.txt"), "x")
	writeFile(t, filepath.Join(tour, "wing", "03-garden.M4A"), "x")

	a := NewAudioFileStore(root)
	tracks, err := a.TracksFromDir(tour)
	if err != nil {
		t.Fatalf("TracksFromDir: unexpected error: %v", err)
	}

	want := []struct{ title, path string }{
		{"01-entrance", filepath.Join("tour", "01-entrance.wav")},
		{"02-hall", filepath.Join("tour", "02-hall.mp3")},
		{"03-garden", filepath.Join("tour", "wing", "03-garden.M4A")},
	}
	if len(tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %+v", len(want), tracks)
	}
	for i, w := range want {
		if tracks[i].Title != w.title || tracks[i].FilePath != w.path || tracks[i].OrderNum != i+1 {
			t.Fatalf("track %d: got %+v, want title %q path %q order %d", i, tracks[i], w.title, w.path, i+1)
		}
	}
}

func TestTracksFromDirOutsideFileDir(t *testing.T) {
	tour := t.TempDir()
	writeFile(t, filepath.Join(tour, "a.mp3"), "x")

	a := NewAudioFileStore(t.TempDir())
	tracks, err := a.TracksFromDir(tour)
	if err != nil {
		t.Fatalf("TracksFromDir: unexpected error: %v", err)
	}
	if len(tracks) != 1 || !filepath.IsAbs(tracks[0].FilePath) {
		t.Fatalf("expected one track with an absolute path, got %+v", tracks)
	}
}

func TestTracksFromDirNotADir(t *testing.T) {
	a := NewAudioFileStore("")
	if _, err := a.TracksFromDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
