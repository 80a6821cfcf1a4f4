package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"audioguide/audiofilestore"
	"audioguide/model"
	"audioguide/redisstore"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AudioguideConfig struct {
	HttpListenAddr string      `yaml:"http_listen_addr"`
	Store          StoreConfig `yaml:"store"`
	Audio          AudioConfig `yaml:"audio"`
	Log            LogConfig   `yaml:"log"`
}

func (c *AudioguideConfig) Write(dst io.Writer) error {
	return yaml.NewEncoder(dst).Encode(&c)
}

const (
	StoreDriverJSON     = "json"
	StoreDriverSqlite   = "sqlite"
	StoreDriverMysql    = "mysql"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

type StoreConfig struct {
	// Driver is one of: json, sqlite, mysql, postgres, redis.
	Driver string `yaml:"driver"`
	// DataFile is the JSON document of the json driver.
	DataFile string `yaml:"data_file"`
	// DSN is the database of the sqlite, mysql and postgres drivers.
	DSN   string      `yaml:"dsn"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

const (
	AudioBackendFS    = "fs"
	AudioBackendMinio = "minio"
)

type AudioConfig struct {
	// Backend is one of: fs, minio.
	Backend string                     `yaml:"backend"`
	FileDir string                     `yaml:"file_dir"`
	Minio   audiofilestore.MinioConfig `yaml:"minio"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	// File, when set, also writes the logs to a rotated file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig is a single-node setup: the JSON document store
// and audio files under {AUDIOGUIDE_FILEPATH}/audio.
func DefaultConfig() *AudioguideConfig {
	return &AudioguideConfig{
		HttpListenAddr: ":8086",
		Store: StoreConfig{
			Driver:   StoreDriverJSON,
			DataFile: "data/guides.json",
			DSN:      "audioguide.db?_pragma=busy_timeout(5000)",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: redisstore.DefaultPrefix,
			},
		},
		Audio: AudioConfig{
			Backend: AudioBackendFS,
			FileDir: model.AudioFileDir(),
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig reads the YAML file at path (if any) over the defaults,
// then applies the AUDIOGUIDE_* environment variables.
// A .env file in the working directory is loaded first; it never
// overrides variables that are already set.
func LoadConfig(path string) (*AudioguideConfig, error) {
	if err := godotenv.Load(); err == nil {
		logger.Debug("LoadConfig: loaded .env")
	}

	c := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("LoadConfig: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(c); err != nil && err != io.EOF {
			return nil, fmt.Errorf("LoadConfig: decode %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, fmt.Errorf("LoadConfig: %w", err)
	}
	return c, nil
}

func (c *AudioguideConfig) applyEnv() error {
	strs := map[string]*string{
		"AUDIOGUIDE_LISTEN":         &c.HttpListenAddr,
		"AUDIOGUIDE_STORE_DRIVER":   &c.Store.Driver,
		"AUDIOGUIDE_DATA_FILE":      &c.Store.DataFile,
		"AUDIOGUIDE_DSN":            &c.Store.DSN,
		"AUDIOGUIDE_REDIS_ADDR":     &c.Store.Redis.Addr,
		"AUDIOGUIDE_REDIS_PASSWORD": &c.Store.Redis.Password,
		"AUDIOGUIDE_AUDIO_BACKEND":  &c.Audio.Backend,
		"AUDIOGUIDE_AUDIO_DIR":      &c.Audio.FileDir,
		"AUDIOGUIDE_MINIO_ENDPOINT": &c.Audio.Minio.Endpoint,
		"AUDIOGUIDE_MINIO_ACCESS":   &c.Audio.Minio.AccessKey,
		"AUDIOGUIDE_MINIO_SECRET":   &c.Audio.Minio.SecretKey,
		"AUDIOGUIDE_MINIO_BUCKET":   &c.Audio.Minio.Bucket,
		"AUDIOGUIDE_LOG_LEVEL":      &c.Log.Level,
		"AUDIOGUIDE_LOG_FILE":       &c.Log.File,
	}
	for env, dst := range strs {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("AUDIOGUIDE_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUDIOGUIDE_REDIS_DB: %w", err)
		}
		c.Store.Redis.DB = db
	}
	return nil
}
