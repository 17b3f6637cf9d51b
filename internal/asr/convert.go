package asr

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the audio file extensions the service accepts.
// Anything else is rejected before ffmpeg is even started.
var SupportedExtensions = []string{
	".mp3", ".wav", ".m4a", ".flac", ".ogg", ".opus",
	".aac", ".webm", ".mp4", ".wma", ".aiff", ".aif",
}

// IsSupportedFormat checks the file extension against SupportedExtensions.
func IsSupportedFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// pcmPipe starts ffmpeg converting inputPath to raw 16-bit mono PCM at the
// given sample rate and returns the stdout stream. The caller must drain the
// reader and then call cmd.Wait.
func pcmPipe(ctx context.Context, inputPath string, sampleRate int) (*exec.Cmd, io.Reader, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return nil, nil, fmt.Errorf("input file: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return cmd, stdout, nil
}

// bytesToFloat32 converts 16-bit little-endian PCM bytes to float32 samples.
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := 0; i < len(samples); i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// AudioDuration returns the duration of an audio file in seconds using
// ffprobe.
func AudioDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	var duration float64
	fmt.Sscanf(string(output), "%f", &duration)
	return duration, nil
}
