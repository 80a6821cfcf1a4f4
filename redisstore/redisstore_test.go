package redisstore

import (
	"context"
	"errors"
	"testing"

	"audioguide/catalog"
	"audioguide/catalog/catalogtest"
	"audioguide/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test"), mr
}

func TestStore(t *testing.T) {
	catalogtest.RunStoreTests(t, func(t *testing.T) catalog.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestKeysLayout(t *testing.T) {
	s, mr := newTestStore(t)
	defer s.Close()

	id, err := s.CreateGuide(context.Background(), model.Guide{Title: "Louvre", Category: "art"},
		[]model.Track{
			{Title: "Mona Lisa", FilePath: "mona.mp3", OrderNum: 1},
			{Title: "Venus", FilePath: "venus.mp3", OrderNum: 2},
		})
	if err != nil {
		t.Fatalf("CreateGuide: unexpected error: %v", err)
	}

	if got, _ := mr.Get("test:guide_seq"); got != "1" {
		t.Fatalf("guide_seq = %q, want 1", got)
	}
	if got, _ := mr.Get("test:track_seq"); got != "2" {
		t.Fatalf("track_seq = %q, want 2", got)
	}
	list, err := mr.List("test:guide:1:tracks")
	if err != nil || len(list) != 2 || list[0] != "1" || list[1] != "2" {
		t.Fatalf("unexpected track list %v, %v", list, err)
	}

	if err := s.DeleteGuide(context.Background(), id); err != nil {
		t.Fatalf("DeleteGuide: unexpected error: %v", err)
	}
	for _, k := range []string{"test:guide:1", "test:guide:1:tracks", "test:track:1", "test:track:2"} {
		if mr.Exists(k) {
			t.Fatalf("key %s survived delete", k)
		}
	}
	if got, _ := mr.Get("test:guide_seq"); got != "1" {
		t.Fatalf("counters must survive delete, guide_seq = %q", got)
	}
}

func TestServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	defer s.Close()
	mr.Close()

	_, err := s.CreateGuide(context.Background(), model.Guide{Title: "x", Category: "y"}, nil)
	if !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, catalog.ErrStorage) {
		t.Fatalf("expected ErrStorage from Ping, got %v", err)
	}
}
