package audiofilestore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// newFakeS3 serves HEAD/GET of objects in one bucket, path-style.
func newFakeS3(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/"+bucket || r.URL.Path == "/"+bucket+"/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		key, ok := strings.CutPrefix(r.URL.Path, "/"+bucket+"/")
		body, found := objects[key]
		if !ok || !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, body)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestMinioSource(srv *httptest.Server, bucket string) (*MinioSource, error) {
	return NewMinioSource(context.Background(), MinioConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    bucket,
		Region:    "us-east-1",
	})
}

func TestMinioSourceOpen(t *testing.T) {
	srv := newFakeS3(t, "tours", map[string]string{"rome/forum.mp3": "forum bytes"})
	m, err := newTestMinioSource(srv, "tours")
	if err != nil {
		t.Fatalf("NewMinioSource: unexpected error: %v", err)
	}

	audio, err := m.Open(context.Background(), "/rome/forum.mp3")
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	defer audio.Close()
	data, err := io.ReadAll(audio)
	if err != nil {
		t.Fatalf("ReadAll: unexpected error: %v", err)
	}
	if string(data) != "forum bytes" || audio.Size != int64(len(data)) || audio.Name != "forum.mp3" {
		t.Fatalf("unexpected audio %q (size %d, name %q)", data, audio.Size, audio.Name)
	}
}

func TestMinioSourceMissingObject(t *testing.T) {
	srv := newFakeS3(t, "tours", nil)
	m, err := newTestMinioSource(srv, "tours")
	if err != nil {
		t.Fatalf("NewMinioSource: unexpected error: %v", err)
	}

	if _, err := m.Open(context.Background(), "rome/gone.mp3"); !errors.Is(err, ErrAudioNotFound) {
		t.Fatalf("expected ErrAudioNotFound, got %v", err)
	}
	if got := m.DefaultTitle(context.Background(), "/rome/Colosseum.mp3"); got != "Colosseum" {
		t.Fatalf("expected title from object name, got %q", got)
	}
}

func TestMinioSourceMissingBucket(t *testing.T) {
	srv := newFakeS3(t, "tours", nil)
	if _, err := newTestMinioSource(srv, "other"); err == nil {
		t.Fatal("expected error for a missing bucket")
	}
}
