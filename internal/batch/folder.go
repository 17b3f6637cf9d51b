package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"scriba/internal/asr"
)

// ErrFolderNotFound is returned when the scan target does not exist or is
// not a directory.
var ErrFolderNotFound = fmt.Errorf("folder not found")

// FindAudioFiles scans a folder for files with recognized audio extensions
// and returns their paths relative to the folder, sorted. Non-audio files
// are ignored.
func FindAudioFiles(folder string, recursive bool) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !asr.IsSupportedFormat(path) {
				return nil
			}
			rel, err := filepath.Rel(folder, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !asr.IsSupportedFormat(entry.Name()) {
				continue
			}
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

// Preview is the read-only result of a folder scan.
type Preview struct {
	SourceFolder string   `json:"source_folder"`
	Recursive    bool     `json:"recursive"`
	MaxFiles     int      `json:"max_files"`
	TotalFiles   int      `json:"total_files"`
	ExceedsLimit bool     `json:"exceeds_limit"`
	AudioFiles   []string `json:"audio_files"`
}
