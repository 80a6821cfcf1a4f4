package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"audioguide/catalog"
	"audioguide/model"

	"gorm.io/gorm"
)

// Store is a catalog.Store on a gorm database.
//
// Mutations run in one transaction each and are serialized by mu:
// sqlite allows a single writer anyway.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// allocateIDs reserves n consecutive ids of the named counter
// and returns the first one. It must run inside tx.
func allocateIDs(tx *gorm.DB, name string, n uint) (uint, error) {
	res := tx.Model(&counter{}).
		Where("name = ?", name).
		UpdateColumn("next_id", gorm.Expr("next_id + ?", n))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, fmt.Errorf("allocateIDs: counter %q missing", name)
	}

	var c counter
	if err := tx.Where("name = ?", name).Take(&c).Error; err != nil {
		return 0, err
	}
	return c.NextID - n, nil
}

func (s *Store) CreateGuide(ctx context.Context, guide model.Guide, tracks []model.Track) (uint, error) {
	if err := catalog.ValidateGuide(guide, tracks); err != nil {
		return 0, err
	}
	tracks = append([]model.Track(nil), tracks...)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := allocateIDs(tx, guideCounter, 1)
		if err != nil {
			return err
		}
		guide.ID = id
		if err := tx.Create(&guide).Error; err != nil {
			return err
		}

		if len(tracks) == 0 {
			return nil
		}

		first, err := allocateIDs(tx, trackCounter, uint(len(tracks)))
		if err != nil {
			return err
		}
		for i := range tracks {
			tracks[i].ID = first + uint(i)
			tracks[i].GuideID = guide.ID
		}
		return tx.Create(&tracks).Error
	})
	if err != nil {
		return 0, catalog.StorageFailure("metadata.CreateGuide", err)
	}

	logger.WithContext(ctx).
		WithField("guideID", guide.ID).
		WithField("tracks", len(tracks)).
		Debug("CreateGuide: saved")

	return guide.ID, nil
}

func (s *Store) GetGuide(ctx context.Context, id uint) (*model.Guide, error) {
	var g model.Guide
	err := s.db.WithContext(ctx).Take(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrGuideNotFound
	}
	if err != nil {
		return nil, catalog.StorageFailure("metadata.GetGuide", err)
	}
	return &g, nil
}

func (s *Store) ListGuides(ctx context.Context) ([]model.Guide, error) {
	guides := make([]model.Guide, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&guides).Error; err != nil {
		return nil, catalog.StorageFailure("metadata.ListGuides", err)
	}
	return guides, nil
}

func (s *Store) DeleteGuide(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g model.Guide
		if err := tx.Take(&g, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrGuideNotFound
			}
			return err
		}

		if err := tx.Where("guide_id = ?", id).Delete(&model.Track{}).Error; err != nil {
			return err
		}
		return tx.Delete(&g).Error
	})

	switch {
	case err == nil:
		logger.WithContext(ctx).WithField("guideID", id).Debug("DeleteGuide: deleted")
		return nil
	case errors.Is(err, catalog.ErrNotFound):
		return err
	default:
		return catalog.StorageFailure("metadata.DeleteGuide", err)
	}
}

func (s *Store) ListTracksForGuide(ctx context.Context, guideID uint) ([]model.Track, error) {
	tracks := make([]model.Track, 0)
	err := s.db.WithContext(ctx).
		Where("guide_id = ?", guideID).
		Order("order_num").Order("id").
		Find(&tracks).Error
	if err != nil {
		return nil, catalog.StorageFailure("metadata.ListTracksForGuide", err)
	}
	return tracks, nil
}

func (s *Store) GetTrack(ctx context.Context, id uint) (*model.Track, error) {
	var t model.Track
	err := s.db.WithContext(ctx).Take(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrTrackNotFound
	}
	if err != nil {
		return nil, catalog.StorageFailure("metadata.GetTrack", err)
	}
	return &t, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return catalog.StorageFailure("metadata.Ping", err)
	}
	return catalog.StorageFailure("metadata.Ping", sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
