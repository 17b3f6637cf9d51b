package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDummy(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindAudioFiles(t *testing.T) {
	dir := t.TempDir()
	writeDummy(t, filepath.Join(dir, "b.mp3"))
	writeDummy(t, filepath.Join(dir, "a.wav"))
	writeDummy(t, filepath.Join(dir, "notes.txt"))
	writeDummy(t, filepath.Join(dir, "sub", "c.m4a"))

	files, err := FindAudioFiles(dir, false)
	if err != nil {
		t.Fatalf("FindAudioFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "a.wav" || files[1] != "b.mp3" {
		t.Errorf("non-recursive scan = %v, want [a.wav b.mp3]", files)
	}

	files, err = FindAudioFiles(dir, true)
	if err != nil {
		t.Fatalf("FindAudioFiles recursive: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("recursive scan = %v, want 3 files", files)
	}
	if files[2] != filepath.Join("sub", "c.m4a") {
		t.Errorf("recursive scan should return sorted relative paths, got %v", files)
	}
}

func TestFindAudioFiles_MissingFolder(t *testing.T) {
	if _, err := FindAudioFiles(filepath.Join(t.TempDir(), "nope"), false); !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("expected ErrFolderNotFound, got %v", err)
	}
}
