package catalog

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"audioguide/model"
)

func TestValidateGuideOK(t *testing.T) {
	g := model.Guide{Title: strings.Repeat("é", 50), Description: "", Category: "music"}
	tracks := []model.Track{{Title: "", FilePath: "a.mp3", Duration: 0, OrderNum: -1}}
	if err := ValidateGuide(g, tracks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateGuideCollectsAllFields(t *testing.T) {
	g := model.Guide{Description: strings.Repeat("x", 301)}
	tracks := []model.Track{
		{FilePath: "ok.mp3"},
		{Title: strings.Repeat("t", 51), Duration: -0.5},
	}

	err := ValidateGuide(g, tracks)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	got := make(map[string]string)
	for _, f := range verr.Fields {
		got[fmt.Sprint(f.Loc)] = f.Type
	}
	want := map[string]string{
		"[body title]":              "missing",
		"[body description]":        "string_too_long",
		"[body category]":           "missing",
		"[body tracks 1 title]":     "string_too_long",
		"[body tracks 1 file_path]": "missing",
		"[body tracks 1 duration]":  "greater_than_equal",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d field errors, got %v", len(want), got)
	}
	for loc, typ := range want {
		if got[loc] != typ {
			t.Fatalf("%s: expected %s, got %q (all: %v)", loc, typ, got[loc], got)
		}
	}
}

func TestSortTracks(t *testing.T) {
	tracks := []model.Track{
		{ID: 4, OrderNum: 1},
		{ID: 1, OrderNum: 2},
		{ID: 2, OrderNum: 1},
		{ID: 3, OrderNum: 0},
	}
	SortTracks(tracks)
	var ids []uint
	for _, tr := range tracks {
		ids = append(ids, tr.ID)
	}
	if fmt.Sprint(ids) != "[3 2 4 1]" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := StorageFailure("CreateGuide", cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("StorageError should match ErrStorage and its cause: %v", err)
	}
	if StorageFailure("noop", nil) != nil {
		t.Fatal("StorageFailure(nil) should be nil")
	}
	if !errors.Is(ErrGuideNotFound, ErrNotFound) || !errors.Is(ErrTrackNotFound, ErrNotFound) {
		t.Fatal("not-found errors should match ErrNotFound")
	}
}
