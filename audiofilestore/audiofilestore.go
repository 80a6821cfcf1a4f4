// Package audiofilestore resolves tracks' file_path to audio bytes.
// Exposure a Source with two implementations:
//   - AudioFileStore: a local directory (relative paths resolve against it)
//   - MinioSource: objects in a MinIO / S3 bucket
//
// Exposure Routes (AudioFileStore only):
//   - /audio: static audio files
package audiofilestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audioguide/model"

	"github.com/cdfmlr/crud/log"
	"github.com/gin-gonic/gin"
)

var logger = log.ZoneLogger("audioguide/audiofilestore")

// ErrAudioNotFound is returned when a track's audio resource does not exist.
var ErrAudioNotFound = errors.New("audio file not found")

// Audio is an opened audio resource. Close it when done.
type Audio struct {
	io.ReadCloser
	Size int64
	Name string
}

// Source opens the audio resource of a track.
type Source interface {
	// Open checks the resource exists (ErrAudioNotFound otherwise)
	// and opens it for reading.
	Open(ctx context.Context, filePath string) (*Audio, error)
	// DefaultTitle returns a title for a track that has none.
	DefaultTitle(ctx context.Context, filePath string) string
}

// AudioFileStore serves audio files from a local directory.
type AudioFileStore struct {
	FileDir string
}

func NewAudioFileStore(fileDir string) *AudioFileStore {
	return &AudioFileStore{FileDir: fileDir}
}

// Path returns the filesystem path of filePath.
func (a *AudioFileStore) Path(filePath string) string {
	return model.ResolveAudioPath(a.FileDir, filePath)
}

// Open opens the file at filePath. A relative filePath must stay inside
// FileDir: "../" escapes are reported as ErrAudioNotFound.
func (a *AudioFileStore) Open(ctx context.Context, filePath string) (*Audio, error) {
	if !filepath.IsAbs(filePath) && !filepath.IsLocal(filePath) {
		logger.WithField("filePath", filePath).Warn("Open: relative path escapes FileDir")
		return nil, fmt.Errorf("%w: %s", ErrAudioNotFound, filePath)
	}
	path := a.Path(filePath)

	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && st.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrAudioNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("AudioFileStore.Open: Stat failed: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("AudioFileStore.Open: Open failed: %w", err)
	}

	return &Audio{ReadCloser: f, Size: st.Size(), Name: filepath.Base(path)}, nil
}

// DefaultTitle reads the title tag of the file,
// falling back to the file name.
func (a *AudioFileStore) DefaultTitle(ctx context.Context, filePath string) string {
	track, err := model.TrackFromAudioFile(a.Path(filePath))
	if err != nil {
		logger.WithField("filePath", filePath).
			WithError(err).
			Debug("DefaultTitle: TrackFromAudioFile failed, using file name")
		return model.TitleFromPath(filePath)
	}
	return track.Title
}

// TracksFromDir builds one track per music file in dir, ordered by path,
// with OrderNum 1..N. File paths are relative to a.FileDir when dir is
// inside it, so the tracks stay valid if the directory moves.
func (a *AudioFileStore) TracksFromDir(dir string) ([]model.Track, error) {
	ch, err := enumMusicFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("TracksFromDir: enumMusicFiles failed: %w", err)
	}

	var paths []string
	for path := range ch {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	tracks := make([]model.Track, 0, len(paths))
	for _, path := range paths {
		logger.WithField("path", path).Debug("TracksFromDir: TrackFromAudioFile")

		track, err := model.TrackFromAudioFile(path)
		if err != nil {
			logger.Errorf("TracksFromDir: TrackFromAudioFile failed: %v", err)
			continue
		}
		track.FilePath = a.relativePath(path)
		track.OrderNum = len(tracks) + 1
		tracks = append(tracks, *track)
	}

	return tracks, nil
}

// relativePath = Abs(path) - Abs(FileDir), or Abs(path) when outside FileDir.
func (a *AudioFileStore) relativePath(path string) string {
	fileAbsPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if a.FileDir == "" {
		return fileAbsPath
	}
	dirAbsPath, err := filepath.Abs(a.FileDir)
	if err != nil {
		return fileAbsPath
	}

	rel, err := filepath.Rel(dirAbsPath, fileAbsPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fileAbsPath
	}
	return rel
}

// RegisterRoutes serves FileDir at /audio.
func (a *AudioFileStore) RegisterRoutes(r gin.IRouter) {
	r.Static(model.AudioStaticServePath, a.FileDir)
}

// isMusicFile returns true if the file is a music file.
// It checks the file extension.
// supported extensions: .mp3, .wav, .m4a
func isMusicFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".wav", ".m4a":
		return true
	default:
		return false
	}
}

// enumMusicFiles enumerates all the music files in the directory.
// It returns a channel of the file paths.
func enumMusicFiles(dir string) (chan string, error) {
	if dir == "" {
		return nil, errors.New("empty dir")
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, errors.New("not a dir")
	}

	ch := make(chan string, 3)

	go func() {
		defer close(ch)

		// walk the directory
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			// skip non-music files
			if d.IsDir() || !isMusicFile(path) {
				return nil
			}

			ch <- path

			return nil
		})

		if err != nil {
			logger.WithField("dir", dir).WithError(err).Error("enumMusicFiles: WalkDir failed")
		}
	}()

	return ch, nil
}
