package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audioguide/catalog"
	"audioguide/catalog/catalogtest"
	"audioguide/model"

	"github.com/goccy/go-json"
)

func TestStore(t *testing.T) {
	catalogtest.RunStoreTests(t, func(t *testing.T) catalog.Store {
		s, err := Open(filepath.Join(t.TempDir(), "data", "guides.json"))
		if err != nil {
			t.Fatalf("Open: unexpected error: %v", err)
		}
		return s
	})
}

func TestOpenInitializesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guides.json")
	if _, err := Open(path); err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("document is not json: %v", err)
	}
	for _, key := range []string{"guides", "tracks", "next_guide_id", "next_track_id"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("document misses %q: %s", key, data)
		}
	}
	if raw["next_guide_id"] != float64(1) || raw["next_track_id"] != float64(1) {
		t.Fatalf("counters should start at 1: %s", data)
	}
}

func TestReopenKeepsDataAndCounters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "guides.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	first, err := s.CreateGuide(ctx, model.Guide{Title: "Rome", Category: "travel"},
		[]model.Track{{Title: "Forum", FilePath: "forum.mp3", Duration: 61.5, OrderNum: 1}})
	if err != nil {
		t.Fatalf("CreateGuide: unexpected error: %v", err)
	}
	if err := s.DeleteGuide(ctx, first); err != nil {
		t.Fatalf("DeleteGuide: unexpected error: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: unexpected error: %v", err)
	}
	second, err := s.CreateGuide(ctx, model.Guide{Title: "Paris", Category: "travel"},
		[]model.Track{{Title: "Louvre", FilePath: "louvre.mp3", OrderNum: 1}})
	if err != nil {
		t.Fatalf("CreateGuide: unexpected error: %v", err)
	}
	if second != 2 {
		t.Fatalf("expected guide id 2 after reopen, got %d", second)
	}
	tracks, _ := s.ListTracksForGuide(ctx, second)
	if len(tracks) != 1 || tracks[0].ID != 2 {
		t.Fatalf("expected track id 2 after reopen, got %+v", tracks)
	}
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := Open(filepath.Join(dir, "guides.json"))
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	id, err := s.CreateGuide(ctx, model.Guide{Title: "Kept", Category: "c"}, nil)
	if err != nil {
		t.Fatalf("CreateGuide: unexpected error: %v", err)
	}

	// the temp file cannot be created without its directory
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	_, err = s.CreateGuide(ctx, model.Guide{Title: "Lost", Category: "c"}, nil)
	if !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := s.DeleteGuide(ctx, id); !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("expected Ping to fail, got %v", err)
	}

	guides, _ := s.ListGuides(ctx)
	if len(guides) != 1 || guides[0].ID != id {
		t.Fatalf("memory diverged from disk: %+v", guides)
	}
}

func TestOpenCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guides.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
