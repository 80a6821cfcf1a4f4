// Package docstore keeps the whole catalog in one JSON document on disk:
//
//	{"guides": [...], "tracks": [...], "next_guide_id": 1, "next_track_id": 1}
//
// Every mutation rewrites the document (temp file, fsync, rename) before
// the in-memory copy is replaced, so memory never runs ahead of the disk.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"audioguide/catalog"
	"audioguide/model"

	"github.com/cdfmlr/crud/log"
	"github.com/goccy/go-json"
)

var logger = log.ZoneLogger("audioguide/docstore")

type document struct {
	Guides      []model.Guide `json:"guides"`
	Tracks      []model.Track `json:"tracks"`
	NextGuideID uint          `json:"next_guide_id"`
	NextTrackID uint          `json:"next_track_id"`
}

func emptyDocument() *document {
	return &document{
		Guides:      []model.Guide{},
		Tracks:      []model.Track{},
		NextGuideID: 1,
		NextTrackID: 1,
	}
}

func (d *document) clone() *document {
	c := *d
	c.Guides = append(make([]model.Guide, 0, len(d.Guides)+1), d.Guides...)
	c.Tracks = append(make([]model.Track, 0, len(d.Tracks)), d.Tracks...)
	return &c
}

func (d *document) guideIndex(id uint) int {
	for i := range d.Guides {
		if d.Guides[i].ID == id {
			return i
		}
	}
	return -1
}

// Store is a catalog.Store backed by a JSON document.
type Store struct {
	path string

	mu  sync.RWMutex
	doc *document
}

// Open loads the document at path, creating it (and its directory)
// when it does not exist yet.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, catalog.StorageFailure("docstore.Open", err)
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		doc := emptyDocument()
		if err := s.persist(doc); err != nil {
			return nil, err
		}
		s.doc = doc
		logger.WithField("path", path).Info("Open: initialized new document")
	case err != nil:
		return nil, catalog.StorageFailure("docstore.Open", err)
	default:
		doc := emptyDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, catalog.StorageFailure("docstore.Open",
				fmt.Errorf("decode %s: %w", path, err))
		}
		s.doc = doc
		logger.WithField("path", path).
			WithField("guides", len(doc.Guides)).
			WithField("tracks", len(doc.Tracks)).
			Info("Open: loaded document")
	}

	return s, nil
}

// persist writes doc next to s.path and renames it into place.
func (s *Store) persist(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return catalog.StorageFailure("docstore.persist", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return catalog.StorageFailure("docstore.persist", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return catalog.StorageFailure("docstore.persist", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return catalog.StorageFailure("docstore.persist", err)
	}
	if err := tmp.Close(); err != nil {
		return catalog.StorageFailure("docstore.persist", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return catalog.StorageFailure("docstore.persist", err)
	}
	return nil
}

func (s *Store) CreateGuide(ctx context.Context, guide model.Guide, tracks []model.Track) (uint, error) {
	if err := catalog.ValidateGuide(guide, tracks); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.clone()

	guide.ID = next.NextGuideID
	next.NextGuideID++
	next.Guides = append(next.Guides, guide)

	for _, t := range tracks {
		t.ID = next.NextTrackID
		t.GuideID = guide.ID
		next.NextTrackID++
		next.Tracks = append(next.Tracks, t)
	}

	if err := s.persist(next); err != nil {
		return 0, err
	}
	s.doc = next

	logger.WithContext(ctx).
		WithField("guideID", guide.ID).
		WithField("tracks", len(tracks)).
		Debug("CreateGuide: saved")

	return guide.ID, nil
}

func (s *Store) GetGuide(ctx context.Context, id uint) (*model.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.doc.guideIndex(id)
	if i < 0 {
		return nil, catalog.ErrGuideNotFound
	}
	g := s.doc.Guides[i]
	return &g, nil
}

func (s *Store) ListGuides(ctx context.Context) ([]model.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Guide{}, s.doc.Guides...), nil
}

func (s *Store) DeleteGuide(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.guideIndex(id) < 0 {
		return catalog.ErrGuideNotFound
	}

	next := s.doc.clone()

	tracks := next.Tracks[:0]
	for _, t := range next.Tracks {
		if t.GuideID != id {
			tracks = append(tracks, t)
		}
	}
	next.Tracks = tracks

	i := next.guideIndex(id)
	next.Guides = append(next.Guides[:i], next.Guides[i+1:]...)

	if err := s.persist(next); err != nil {
		return err
	}
	s.doc = next

	logger.WithContext(ctx).WithField("guideID", id).Debug("DeleteGuide: deleted")
	return nil
}

func (s *Store) ListTracksForGuide(ctx context.Context, guideID uint) ([]model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := []model.Track{}
	for _, t := range s.doc.Tracks {
		if t.GuideID == guideID {
			tracks = append(tracks, t)
		}
	}
	catalog.SortTracks(tracks)
	return tracks, nil
}

func (s *Store) GetTrack(ctx context.Context, id uint) (*model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.doc.Tracks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, catalog.ErrTrackNotFound
}

// Ping checks the document is still on disk.
func (s *Store) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return catalog.StorageFailure("docstore.Ping", err)
}

func (s *Store) Close() error {
	return nil
}
