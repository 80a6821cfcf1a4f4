package main

import (
	"context"
	"fmt"
	"time"

	"audioguide/audiofilestore"
	"audioguide/catalog"
	"audioguide/docstore"
	"audioguide/metadata"
	"audioguide/redisstore"
)

const connectTimeout = 5 * time.Second

// openStore opens the catalog.Store selected by c.Driver.
func openStore(c StoreConfig) (catalog.Store, error) {
	switch c.Driver {
	case StoreDriverJSON, "":
		return docstore.Open(c.DataFile)
	case StoreDriverSqlite:
		return metadata.Open(metadata.DriverSqlite, c.DSN)
	case StoreDriverMysql:
		return metadata.Open(metadata.DriverMysql, c.DSN)
	case StoreDriverPostgres:
		return metadata.Open(metadata.DriverPostgres, c.DSN)
	case StoreDriverRedis:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return redisstore.Open(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB, c.Redis.Prefix)
	default:
		return nil, fmt.Errorf("openStore: unknown driver %q", c.Driver)
	}
}

// openAudio opens the audiofilestore.Source selected by c.Backend.
// The local store is also returned (nil for other backends):
// it serves /audio and imports directories.
func openAudio(c AudioConfig) (audiofilestore.Source, *audiofilestore.AudioFileStore, error) {
	switch c.Backend {
	case AudioBackendFS, "":
		local := audiofilestore.NewAudioFileStore(c.FileDir)
		return local, local, nil
	case AudioBackendMinio:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		src, err := audiofilestore.NewMinioSource(ctx, c.Minio)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		return nil, nil, fmt.Errorf("openAudio: unknown backend %q", c.Backend)
	}
}
