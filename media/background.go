package media

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

// PickBackground chooses a random background clip from dir. Every run gets a
// fresh clip so repeated videos from the same prompt do not look identical.
func PickBackground(dir string) (string, error) {
	clips, err := ListBackgrounds(dir)
	if err != nil {
		return "", err
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no background videos in %s", dir)
	}
	return clips[rand.Intn(len(clips))], nil
}

// ListBackgrounds returns the video files directly under dir, sorted by name.
func ListBackgrounds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read background dir: %w", err)
	}

	var clips []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			clips = append(clips, filepath.Join(dir, entry.Name()))
		}
	}
	return clips, nil
}
