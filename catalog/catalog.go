// Package catalog defines the guide/track store contract shared by the
// storage backends (docstore, metadata, redisstore) and the api layer.
package catalog

import (
	"context"
	"sort"

	"audioguide/model"
)

// Store owns the persisted guides and tracks.
//
// Implementations serialize mutating operations: two concurrent
// CreateGuide calls never get the same id, and a guide is created or
// deleted together with its tracks as one unit.
type Store interface {
	// CreateGuide validates the guide and its tracks, allocates ids
	// (the guide first, then one per track in the given order),
	// stamps the tracks' GuideID and commits everything at once.
	CreateGuide(ctx context.Context, guide model.Guide, tracks []model.Track) (uint, error)
	GetGuide(ctx context.Context, id uint) (*model.Guide, error)
	// ListGuides returns the guides in insertion order.
	ListGuides(ctx context.Context) ([]model.Guide, error)
	// DeleteGuide removes the guide and all of its tracks.
	DeleteGuide(ctx context.Context, id uint) error
	// ListTracksForGuide returns the tracks ordered by OrderNum,
	// ties in insertion order. Unknown guides have no tracks.
	ListTracksForGuide(ctx context.Context, guideID uint) ([]model.Track, error)
	GetTrack(ctx context.Context, id uint) (*model.Track, error)

	Ping(ctx context.Context) error
	Close() error
}

// SortTracks sorts tracks by OrderNum, then by ID.
// Track ids grow with insertion, so equal OrderNum keep insertion order.
func SortTracks(tracks []model.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].OrderNum != tracks[j].OrderNum {
			return tracks[i].OrderNum < tracks[j].OrderNum
		}
		return tracks[i].ID < tracks[j].ID
	})
}
