// Package redisstore keeps the catalog in Redis.
//
// Keys, under a configurable prefix:
//
//	{prefix}:guide_seq          last issued guide id
//	{prefix}:track_seq          last issued track id
//	{prefix}:guides             zset of guide ids, scored by id
//	{prefix}:guide:{id}         guide json
//	{prefix}:guide:{id}:tracks  list of track ids, insertion order
//	{prefix}:track:{id}         track json
//
// Creates and deletes are WATCH/MULTI/EXEC transactions, so a guide,
// its tracks and the counters always change together.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"audioguide/catalog"
	"audioguide/model"

	"github.com/cdfmlr/crud/log"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var logger = log.ZoneLogger("audioguide/redisstore")

const DefaultPrefix = "audioguide"

// Store is a catalog.Store on Redis.
type Store struct {
	rdb    *redis.Client
	prefix string

	mu sync.Mutex
}

// New wraps an existing client.
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Open connects to addr and checks the connection.
func Open(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redisstore.Open: failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", addr).Info("Open: connected")
	return New(rdb, prefix), nil
}

func (s *Store) key(parts ...any) string {
	k := s.prefix
	for _, p := range parts {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}

func (s *Store) guideKey(id uint) string       { return s.key("guide", id) }
func (s *Store) guideTracksKey(id uint) string { return s.key("guide", id, "tracks") }
func (s *Store) trackKey(id uint) string       { return s.key("track", id) }

func (s *Store) CreateGuide(ctx context.Context, guide model.Guide, tracks []model.Track) (uint, error) {
	if err := catalog.ValidateGuide(guide, tracks); err != nil {
		return 0, err
	}
	tracks = append([]model.Track(nil), tracks...)

	s.mu.Lock()
	defer s.mu.Unlock()

	guideSeq, trackSeq := s.key("guide_seq"), s.key("track_seq")

	txf := func(tx *redis.Tx) error {
		lastGuide, err := getSeq(ctx, tx, guideSeq)
		if err != nil {
			return err
		}
		lastTrack, err := getSeq(ctx, tx, trackSeq)
		if err != nil {
			return err
		}

		guide.ID = lastGuide + 1
		for i := range tracks {
			tracks[i].ID = lastTrack + 1 + uint(i)
			tracks[i].GuideID = guide.ID
		}

		guideJSON, err := json.Marshal(guide)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, guideSeq, guide.ID, 0)
			pipe.Set(ctx, s.guideKey(guide.ID), guideJSON, 0)
			pipe.ZAdd(ctx, s.key("guides"), redis.Z{Score: float64(guide.ID), Member: guide.ID})

			if len(tracks) == 0 {
				return nil
			}
			pipe.Set(ctx, trackSeq, tracks[len(tracks)-1].ID, 0)
			ids := make([]any, 0, len(tracks))
			for _, t := range tracks {
				data, err := json.Marshal(t)
				if err != nil {
					return err
				}
				pipe.Set(ctx, s.trackKey(t.ID), data, 0)
				ids = append(ids, t.ID)
			}
			pipe.RPush(ctx, s.guideTracksKey(guide.ID), ids...)
			return nil
		})
		return err
	}

	if err := s.rdb.Watch(ctx, txf, guideSeq, trackSeq); err != nil {
		return 0, catalog.StorageFailure("redisstore.CreateGuide", err)
	}

	logger.WithContext(ctx).
		WithField("guideID", guide.ID).
		WithField("tracks", len(tracks)).
		Debug("CreateGuide: saved")

	return guide.ID, nil
}

func getSeq(ctx context.Context, tx *redis.Tx, key string) (uint, error) {
	n, err := tx.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return uint(n), err
}

func (s *Store) GetGuide(ctx context.Context, id uint) (*model.Guide, error) {
	data, err := s.rdb.Get(ctx, s.guideKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, catalog.ErrGuideNotFound
	}
	if err != nil {
		return nil, catalog.StorageFailure("redisstore.GetGuide", err)
	}

	var g model.Guide
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, catalog.StorageFailure("redisstore.GetGuide", err)
	}
	return &g, nil
}

func (s *Store) ListGuides(ctx context.Context) ([]model.Guide, error) {
	ids, err := s.rdb.ZRange(ctx, s.key("guides"), 0, -1).Result()
	if err != nil {
		return nil, catalog.StorageFailure("redisstore.ListGuides", err)
	}

	guides := make([]model.Guide, 0, len(ids))
	err = s.mget(ctx, ids, func(id string) string { return s.key("guide", id) }, func(data []byte) error {
		var g model.Guide
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		guides = append(guides, g)
		return nil
	})
	if err != nil {
		return nil, catalog.StorageFailure("redisstore.ListGuides", err)
	}
	return guides, nil
}

// mget fetches the keys of ids and calls fn on every existing value, in order.
func (s *Store) mget(ctx context.Context, ids []string, keyOf func(string) string, fn func([]byte) error) error {
	if len(ids) == 0 {
		return nil
	}
	values, err := s.rdb.MGet(ctx, s.keys(ids, keyOf)...).Result()
	if err != nil {
		return err
	}
	return eachValue(values, fn)
}

func (s *Store) keys(ids []string, keyOf func(string) string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyOf(id)
	}
	return keys
}

func eachValue(values []any, fn func([]byte) error) error {
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // deleted meanwhile
		}
		if err := fn([]byte(str)); err != nil {
			return err
		}
	}
	return nil
}

// maxWatchRetries bounds the optimistic reads retried after a concurrent write.
const maxWatchRetries = 16

// watchRetry runs txf in Watch until it commits without a conflicting write.
func (s *Store) watchRetry(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func (s *Store) DeleteGuide(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	guideKey, tracksKey := s.guideKey(id), s.guideTracksKey(id)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, guideKey).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return catalog.ErrGuideNotFound
		}

		trackIDs, err := tx.LRange(ctx, tracksKey, 0, -1).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, tid := range trackIDs {
				pipe.Del(ctx, s.key("track", tid))
			}
			pipe.Del(ctx, tracksKey, guideKey)
			pipe.ZRem(ctx, s.key("guides"), strconv.FormatUint(uint64(id), 10))
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, guideKey, tracksKey)
	switch {
	case err == nil:
		logger.WithContext(ctx).WithField("guideID", id).Debug("DeleteGuide: deleted")
		return nil
	case errors.Is(err, catalog.ErrNotFound):
		return err
	default:
		return catalog.StorageFailure("redisstore.DeleteGuide", err)
	}
}

// ListTracksForGuide reads the track id list and the tracks in one
// transaction watching the list, so a concurrent delete is never half seen.
func (s *Store) ListTracksForGuide(ctx context.Context, guideID uint) ([]model.Track, error) {
	tracksKey := s.guideTracksKey(guideID)

	var values []any
	txf := func(tx *redis.Tx) error {
		values = nil
		ids, err := tx.LRange(ctx, tracksKey, 0, -1).Result()
		if err != nil || len(ids) == 0 {
			return err
		}

		var mget *redis.SliceCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			mget = pipe.MGet(ctx, s.keys(ids, func(id string) string { return s.key("track", id) })...)
			return nil
		})
		if err != nil {
			return err
		}
		values, err = mget.Result()
		return err
	}
	if err := s.watchRetry(ctx, txf, tracksKey); err != nil {
		return nil, catalog.StorageFailure("redisstore.ListTracksForGuide", err)
	}

	tracks := make([]model.Track, 0, len(values))
	err := eachValue(values, func(data []byte) error {
		var t model.Track
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		tracks = append(tracks, t)
		return nil
	})
	if err != nil {
		return nil, catalog.StorageFailure("redisstore.ListTracksForGuide", err)
	}

	catalog.SortTracks(tracks)
	return tracks, nil
}

func (s *Store) GetTrack(ctx context.Context, id uint) (*model.Track, error) {
	data, err := s.rdb.Get(ctx, s.trackKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, catalog.ErrTrackNotFound
	}
	if err != nil {
		return nil, catalog.StorageFailure("redisstore.GetTrack", err)
	}

	var t model.Track
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, catalog.StorageFailure("redisstore.GetTrack", err)
	}
	return &t, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return catalog.StorageFailure("redisstore.Ping", s.rdb.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
