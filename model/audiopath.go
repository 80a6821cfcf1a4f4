package model

import (
	"fmt"
	"os"
	"path/filepath"
)

// this file defines local (fs) & remote (http) path for tracks' audio files

const EnvAudioguideFilePath = "AUDIOGUIDE_FILEPATH"

const AudioDirname = "audio"

// AudioStaticServePath is where the local audio directory is served.
const AudioStaticServePath = "/" + AudioDirname

// AudioFileDir returns the default directory of the audio files:
//
//	{AUDIOGUIDE_FILEPATH}/audio
//
// where {AUDIOGUIDE_FILEPATH} is an environment variable,
// and defaults to the current directory (./).
func AudioFileDir() string {
	base, ok := os.LookupEnv(EnvAudioguideFilePath)
	if !ok {
		base = "."
	}
	return filepath.Join(base, AudioDirname)
}

// ResolveAudioPath returns the filesystem path of a track's file_path.
// Absolute paths are kept, relative ones are joined to dir.
func ResolveAudioPath(dir, filePath string) string {
	if filepath.IsAbs(filePath) || dir == "" {
		return filepath.Clean(filePath)
	}
	return filepath.Join(dir, filePath)
}

// AudioURL returns the url streaming the track's audio:
//
//	/tracks/{trackID}/audio
func AudioURL(trackID uint) string {
	return fmt.Sprintf("/tracks/%d/audio", trackID)
}

func (t Track) AudioURL() string {
	return AudioURL(t.ID)
}
