// Package catalogtest runs the same behavioral checks against every
// catalog.Store backend.
package catalogtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"audioguide/catalog"
	"audioguide/model"
)

// NewStoreFunc returns an empty store. The store is closed by the suite.
type NewStoreFunc func(t *testing.T) catalog.Store

// RunStoreTests runs the behavioral suite against stores made by newStore.
func RunStoreTests(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s catalog.Store)
	}{
		{"CreateAndGetGuide", testCreateAndGetGuide},
		{"GuideIDsIncrease", testGuideIDsIncrease},
		{"TracksStampedAndSorted", testTracksStampedAndSorted},
		{"TrackOrderTiesKeepInsertion", testTrackOrderTiesKeepInsertion},
		{"InvalidGuideAllocatesNothing", testInvalidGuideAllocatesNothing},
		{"DeleteCascades", testDeleteCascades},
		{"DeleteUnknownGuide", testDeleteUnknownGuide},
		{"IDsNotReusedAfterDelete", testIDsNotReusedAfterDelete},
		{"GetUnknown", testGetUnknown},
		{"ConcurrentCreates", testConcurrentCreates},
		{"DeletesRaceCreatesAndReads", testDeletesRaceCreatesAndReads},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func jazz() (model.Guide, []model.Track) {
	g := model.Guide{Title: "Intro to Jazz", Description: "From swing to bebop.", Category: "music"}
	tracks := []model.Track{
		{Title: "Track1", FilePath: "/a.mp3", Duration: 180.0, OrderNum: 2},
		{Title: "Track2", FilePath: "/b.mp3", Duration: 90.0, OrderNum: 1},
	}
	return g, tracks
}

func mustCreate(t *testing.T, s catalog.Store, g model.Guide, tracks []model.Track) uint {
	t.Helper()
	id, err := s.CreateGuide(context.Background(), g, tracks)
	if err != nil {
		t.Fatalf("CreateGuide: unexpected error: %v", err)
	}
	return id
}

func testCreateAndGetGuide(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	g, tracks := jazz()

	id := mustCreate(t, s, g, tracks)
	if id != 1 {
		t.Fatalf("expected first guide id 1, got %d", id)
	}

	got, err := s.GetGuide(ctx, id)
	if err != nil {
		t.Fatalf("GetGuide: unexpected error: %v", err)
	}
	g.ID = id
	if *got != g {
		t.Fatalf("expected %+v, got %+v", g, *got)
	}

	guides, err := s.ListGuides(ctx)
	if err != nil {
		t.Fatalf("ListGuides: unexpected error: %v", err)
	}
	if len(guides) != 1 || guides[0] != g {
		t.Fatalf("expected [%+v], got %+v", g, guides)
	}
}

func testGuideIDsIncrease(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	var last uint
	for i := 0; i < 5; i++ {
		id := mustCreate(t, s, model.Guide{Title: fmt.Sprintf("Guide %d", i), Category: "history"}, nil)
		if id <= last {
			t.Fatalf("guide id %d not greater than previous %d", id, last)
		}
		last = id
	}

	guides, err := s.ListGuides(ctx)
	if err != nil {
		t.Fatalf("ListGuides: unexpected error: %v", err)
	}
	if len(guides) != 5 {
		t.Fatalf("expected 5 guides, got %d", len(guides))
	}
	for i, g := range guides {
		if g.Title != fmt.Sprintf("Guide %d", i) {
			t.Fatalf("guides not in insertion order: %+v", guides)
		}
	}
}

func testTracksStampedAndSorted(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	g, tracks := jazz()
	id := mustCreate(t, s, g, tracks)

	got, err := s.ListTracksForGuide(ctx, id)
	if err != nil {
		t.Fatalf("ListTracksForGuide: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(got))
	}
	if got[0].Title != "Track2" || got[1].Title != "Track1" {
		t.Fatalf("expected Track2 then Track1, got %q then %q", got[0].Title, got[1].Title)
	}
	for _, tr := range got {
		if tr.GuideID != id {
			t.Fatalf("track %d has guide_id %d, want %d", tr.ID, tr.GuideID, id)
		}
		one, err := s.GetTrack(ctx, tr.ID)
		if err != nil {
			t.Fatalf("GetTrack(%d): unexpected error: %v", tr.ID, err)
		}
		if *one != tr {
			t.Fatalf("GetTrack(%d) = %+v, want %+v", tr.ID, *one, tr)
		}
	}
	// ids follow the order the tracks were given in
	if got[1].ID != 1 || got[0].ID != 2 {
		t.Fatalf("unexpected track ids: %+v", got)
	}
}

func testTrackOrderTiesKeepInsertion(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	tracks := []model.Track{
		{Title: "c", FilePath: "c.mp3", OrderNum: 3},
		{Title: "a1", FilePath: "a1.mp3", OrderNum: 1},
		{Title: "b", FilePath: "b.mp3", OrderNum: 2},
		{Title: "a2", FilePath: "a2.mp3", OrderNum: 1},
		{Title: "a3", FilePath: "a3.mp3", OrderNum: 1},
	}
	id := mustCreate(t, s, model.Guide{Title: "Ties", Category: "test"}, tracks)

	got, err := s.ListTracksForGuide(ctx, id)
	if err != nil {
		t.Fatalf("ListTracksForGuide: unexpected error: %v", err)
	}
	want := []string{"a1", "a2", "a3", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tracks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Title != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], got[i].Title)
		}
	}
}

func testInvalidGuideAllocatesNothing(t *testing.T, s catalog.Store) {
	ctx := context.Background()

	_, err := s.CreateGuide(ctx, model.Guide{Category: "music"}, nil)
	if !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing title, got %v", err)
	}

	_, err = s.CreateGuide(ctx, model.Guide{Title: "ok", Category: "music"},
		[]model.Track{{Title: "neg", FilePath: "x.mp3", Duration: -1}})
	var verr *catalog.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError for negative duration, got %v", err)
	}
	if len(verr.Fields) != 1 || fmt.Sprint(verr.Fields[0].Loc) != "[body tracks 0 duration]" {
		t.Fatalf("unexpected field errors: %+v", verr.Fields)
	}

	guides, err := s.ListGuides(ctx)
	if err != nil {
		t.Fatalf("ListGuides: unexpected error: %v", err)
	}
	if len(guides) != 0 {
		t.Fatalf("expected no guides, got %+v", guides)
	}

	id := mustCreate(t, s, model.Guide{Title: "first", Category: "music"},
		[]model.Track{{Title: "t", FilePath: "t.mp3"}})
	if id != 1 {
		t.Fatalf("rejected creates must not allocate ids: got guide id %d", id)
	}
	tracks, _ := s.ListTracksForGuide(ctx, id)
	if len(tracks) != 1 || tracks[0].ID != 1 {
		t.Fatalf("rejected creates must not allocate track ids: %+v", tracks)
	}
}

func testDeleteCascades(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	g, tracks := jazz()
	doomed := mustCreate(t, s, g, tracks)
	kept := mustCreate(t, s, model.Guide{Title: "Kept", Category: "art"},
		[]model.Track{{Title: "k", FilePath: "k.mp3", OrderNum: 1}})

	doomedTracks, _ := s.ListTracksForGuide(ctx, doomed)

	if err := s.DeleteGuide(ctx, doomed); err != nil {
		t.Fatalf("DeleteGuide: unexpected error: %v", err)
	}

	if _, err := s.GetGuide(ctx, doomed); !errors.Is(err, catalog.ErrGuideNotFound) {
		t.Fatalf("expected ErrGuideNotFound after delete, got %v", err)
	}
	left, err := s.ListTracksForGuide(ctx, doomed)
	if err != nil {
		t.Fatalf("ListTracksForGuide: unexpected error: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected no tracks left for deleted guide, got %+v", left)
	}
	for _, tr := range doomedTracks {
		if _, err := s.GetTrack(ctx, tr.ID); !errors.Is(err, catalog.ErrTrackNotFound) {
			t.Fatalf("track %d survived its guide: %v", tr.ID, err)
		}
	}

	other, _ := s.ListTracksForGuide(ctx, kept)
	if len(other) != 1 || other[0].GuideID != kept {
		t.Fatalf("tracks of other guides must survive: %+v", other)
	}
}

func testDeleteUnknownGuide(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	g, tracks := jazz()
	id := mustCreate(t, s, g, tracks)

	if err := s.DeleteGuide(ctx, id+100); !errors.Is(err, catalog.ErrGuideNotFound) {
		t.Fatalf("expected ErrGuideNotFound, got %v", err)
	}

	guides, _ := s.ListGuides(ctx)
	left, _ := s.ListTracksForGuide(ctx, id)
	if len(guides) != 1 || len(left) != 2 {
		t.Fatalf("dataset changed by failed delete: guides=%+v tracks=%+v", guides, left)
	}
}

func testIDsNotReusedAfterDelete(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	g, tracks := jazz()
	first := mustCreate(t, s, g, tracks)
	if err := s.DeleteGuide(ctx, first); err != nil {
		t.Fatalf("DeleteGuide: unexpected error: %v", err)
	}

	second := mustCreate(t, s, g, tracks)
	if second <= first {
		t.Fatalf("guide id reused: %d after %d", second, first)
	}
	got, _ := s.ListTracksForGuide(ctx, second)
	for _, tr := range got {
		if tr.ID <= 2 {
			t.Fatalf("track id %d reused", tr.ID)
		}
	}
}

func testGetUnknown(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	if _, err := s.GetGuide(ctx, 9999); !errors.Is(err, catalog.ErrGuideNotFound) {
		t.Fatalf("expected ErrGuideNotFound, got %v", err)
	}
	if _, err := s.GetTrack(ctx, 9999); !errors.Is(err, catalog.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
	tracks, err := s.ListTracksForGuide(ctx, 9999)
	if err != nil || len(tracks) != 0 {
		t.Fatalf("expected no tracks and no error, got %+v, %v", tracks, err)
	}
	guides, err := s.ListGuides(ctx)
	if err != nil || guides == nil || len(guides) != 0 {
		t.Fatalf("expected empty non-nil guide list, got %#v, %v", guides, err)
	}
}

func testConcurrentCreates(t *testing.T, s catalog.Store) {
	const n = 20
	ids := make(chan uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.CreateGuide(context.Background(),
				model.Guide{Title: fmt.Sprintf("g%d", i), Category: "c"},
				[]model.Track{{Title: "t", FilePath: "t.mp3", OrderNum: i}})
			if err != nil {
				t.Errorf("CreateGuide: unexpected error: %v", err)
				return
			}
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate guide id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d guides, got %d", n, len(seen))
	}

	for id := range seen {
		tracks, err := s.ListTracksForGuide(context.Background(), id)
		if err != nil || len(tracks) != 1 {
			t.Fatalf("guide %d: expected 1 track, got %+v, %v", id, tracks, err)
		}
	}
}

// testDeletesRaceCreatesAndReads deletes every even guide as soon as it
// is created, while readers keep listing tracks. A guide is always seen
// with all of its tracks or none of them, and no track outlives its guide.
func testDeletesRaceCreatesAndReads(t *testing.T, s catalog.Store) {
	const (
		guides   = 12
		perGuide = 3
	)
	ctx := context.Background()

	created := make(chan uint, guides)
	var writers sync.WaitGroup
	for i := 0; i < guides; i++ {
		writers.Add(1)
		go func(i int) {
			defer writers.Done()
			tracks := make([]model.Track, perGuide)
			for j := range tracks {
				tracks[j] = model.Track{Title: fmt.Sprintf("t%d", j), FilePath: "t.mp3", OrderNum: j}
			}
			id, err := s.CreateGuide(ctx, model.Guide{Title: fmt.Sprintf("g%d", i), Category: "c"}, tracks)
			if err != nil {
				t.Errorf("CreateGuide: unexpected error: %v", err)
				return
			}
			created <- id
		}(i)
	}

	deleterDone := make(chan struct{})
	go func() {
		defer close(deleterDone)
		for id := range created {
			if id%2 != 0 {
				continue
			}
			if err := s.DeleteGuide(ctx, id); err != nil {
				t.Errorf("DeleteGuide(%d): unexpected error: %v", id, err)
			}
		}
	}()

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for id := uint(1); id <= guides; id++ {
					tracks, err := s.ListTracksForGuide(ctx, id)
					if err != nil {
						t.Errorf("ListTracksForGuide(%d): unexpected error: %v", id, err)
						return
					}
					if len(tracks) != 0 && len(tracks) != perGuide {
						t.Errorf("guide %d: seen with %d of %d tracks", id, len(tracks), perGuide)
						return
					}
					for _, tr := range tracks {
						if tr.GuideID != id {
							t.Errorf("guide %d: listed track %+v of another guide", id, tr)
							return
						}
					}
				}
				for tid := uint(1); tid <= guides*perGuide; tid++ {
					tr, err := s.GetTrack(ctx, tid)
					if errors.Is(err, catalog.ErrTrackNotFound) {
						continue
					}
					if err != nil {
						t.Errorf("GetTrack(%d): unexpected error: %v", tid, err)
						return
					}
					if tr.GuideID == 0 || tr.GuideID > guides {
						t.Errorf("track %d: bad guide id %d", tid, tr.GuideID)
						return
					}
				}
			}
		}()
	}

	writers.Wait()
	close(created)
	<-deleterDone
	close(stop)
	readers.Wait()
	if t.Failed() {
		return
	}

	// every surviving track belongs to a surviving guide
	for tid := uint(1); tid <= guides*perGuide; tid++ {
		tr, err := s.GetTrack(ctx, tid)
		if errors.Is(err, catalog.ErrTrackNotFound) {
			continue
		}
		if err != nil {
			t.Fatalf("GetTrack(%d): unexpected error: %v", tid, err)
		}
		if _, err := s.GetGuide(ctx, tr.GuideID); err != nil {
			t.Fatalf("track %d outlives guide %d: %v", tid, tr.GuideID, err)
		}
	}
	for id := uint(1); id <= guides; id++ {
		tracks, err := s.ListTracksForGuide(ctx, id)
		if err != nil {
			t.Fatalf("ListTracksForGuide(%d): unexpected error: %v", id, err)
		}
		_, gerr := s.GetGuide(ctx, id)
		switch {
		case id%2 == 0 && (!errors.Is(gerr, catalog.ErrGuideNotFound) || len(tracks) != 0):
			t.Fatalf("guide %d: expected deleted, got %v and %d tracks", id, gerr, len(tracks))
		case id%2 != 0 && (gerr != nil || len(tracks) != perGuide):
			t.Fatalf("guide %d: expected %d tracks, got %v and %d tracks", id, perGuide, gerr, len(tracks))
		}
	}
}

func testPing(t *testing.T, s catalog.Store) {
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: unexpected error: %v", err)
	}
}
