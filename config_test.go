package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioguide.yaml")
	yml := `
http_listen_addr: ":9000"
store:
  driver: sqlite
  dsn: guides.db
audio:
  file_dir: /srv/audio
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUDIOGUIDE_AUDIO_DIR", "/mnt/audio")
	t.Setenv("AUDIOGUIDE_REDIS_DB", "2")

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: unexpected error: %v", err)
	}

	if c.HttpListenAddr != ":9000" || c.Store.Driver != StoreDriverSqlite || c.Store.DSN != "guides.db" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Audio.FileDir != "/mnt/audio" || c.Store.Redis.DB != 2 {
		t.Fatalf("env values not applied: %+v", c)
	}
	// untouched keys keep their defaults
	if c.Store.DataFile != "data/guides.json" || c.Log.Level != "info" || c.Audio.Backend != AudioBackendFS {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("AUDIOGUIDE_REDIS_DB", "zero")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for non-integer AUDIOGUIDE_REDIS_DB")
	}
}

func TestWriteConfigLoadsBack(t *testing.T) {
	c := DefaultConfig()
	c.Store.Driver = StoreDriverRedis
	c.Store.Redis.Addr = "redis:6379"

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write: unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "audioguide.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: unexpected error: %v", err)
	}
	if got.Store.Driver != StoreDriverRedis || got.Store.Redis.Addr != "redis:6379" {
		t.Fatalf("written config did not load back: %+v", got.Store)
	}
}

func TestSetupLogging(t *testing.T) {
	if err := setupLogging(LogConfig{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("setupLogging: unexpected error: %v", err)
	}
	if err := setupLogging(LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := setupLogging(LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	store, err := openStore(StoreConfig{Driver: StoreDriverJSON, DataFile: filepath.Join(dir, "guides.json")})
	if err != nil {
		t.Fatalf("openStore(json): unexpected error: %v", err)
	}
	store.Close()

	store, err = openStore(StoreConfig{Driver: StoreDriverSqlite, DSN: filepath.Join(dir, "audioguide.db")})
	if err != nil {
		t.Fatalf("openStore(sqlite): unexpected error: %v", err)
	}
	store.Close()

	if _, err := openStore(StoreConfig{Driver: "csv"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}

	_, local, err := openAudio(AudioConfig{Backend: AudioBackendFS, FileDir: dir})
	if err != nil || local == nil || local.FileDir != dir {
		t.Fatalf("openAudio(fs): got %+v, %v", local, err)
	}
	if _, _, err := openAudio(AudioConfig{Backend: "ftp"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
