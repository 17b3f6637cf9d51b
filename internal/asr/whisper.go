package asr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// chunkSeconds is the decode window. Whisper models handle up to 30 seconds
// of audio natively.
const chunkSeconds = 30

// WhisperConfig holds model-level configuration for the Whisper engine.
type WhisperConfig struct {
	ModelDir     string
	VADModelPath string // silero_vad.onnx; empty disables the VAD filter
	NumThreads   int
	SampleRate   int
}

// DefaultWhisperConfig returns a working configuration for a model directory.
func DefaultWhisperConfig(modelDir string) *WhisperConfig {
	return &WhisperConfig{
		ModelDir:   modelDir,
		NumThreads: 4,
		SampleRate: 16000,
	}
}

// WhisperEngine transcribes audio with sherpa-onnx Whisper models. Language
// and beam width are construction-time parameters in sherpa, so recognizers
// are cached per (language, beam) pair; batches share options, so in practice
// one recognizer serves a whole batch.
type WhisperEngine struct {
	config *WhisperConfig

	mu          sync.Mutex
	recognizers map[string]*sherpa.OfflineRecognizer
}

// NewWhisperEngine validates the model directory and creates the engine.
// Model files are loaded lazily on first use of each option set.
func NewWhisperEngine(config *WhisperConfig) (*WhisperEngine, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.NumThreads == 0 {
		config.NumThreads = 4
	}
	if _, _, _, err := findWhisperModel(config.ModelDir); err != nil {
		return nil, err
	}
	return &WhisperEngine{
		config:      config,
		recognizers: make(map[string]*sherpa.OfflineRecognizer),
	}, nil
}

// Close releases all cached recognizers.
func (e *WhisperEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, recognizer := range e.recognizers {
		sherpa.DeleteOfflineRecognizer(recognizer)
		delete(e.recognizers, key)
	}
}

// Transcribe decodes the audio file and returns the full transcription.
func (e *WhisperEngine) Transcribe(ctx context.Context, inputPath string, opts Options) (*Result, error) {
	if !IsSupportedFormat(inputPath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(inputPath))
	}

	recognizer, err := e.recognizer(opts)
	if err != nil {
		return nil, engineErrf(err)
	}

	// Duration is informational; a broken container still fails in ffmpeg.
	duration, _ := AudioDuration(ctx, inputPath)

	var segments []Segment
	if opts.VadFilter && e.config.VADModelPath != "" {
		segments, err = e.transcribeWithVAD(ctx, recognizer, inputPath)
	} else {
		segments, err = e.transcribeChunked(ctx, recognizer, inputPath)
	}
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, engineErrf(err)
	}

	language := opts.Language
	if language == "" {
		language = "auto"
	}
	return &Result{
		Language: language,
		Duration: duration,
		Text:     joinSegments(segments),
		Segments: segments,
	}, nil
}

// recognizer returns a cached recognizer for the given options, creating it
// on first use.
func (e *WhisperEngine) recognizer(opts Options) (*sherpa.OfflineRecognizer, error) {
	key := fmt.Sprintf("%s/%d", opts.Language, opts.BeamSize)

	e.mu.Lock()
	defer e.mu.Unlock()
	if recognizer, ok := e.recognizers[key]; ok {
		return recognizer, nil
	}

	encoderPath, decoderPath, tokensPath, err := findWhisperModel(e.config.ModelDir)
	if err != nil {
		return nil, err
	}

	sherpaConfig := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: e.config.SampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Whisper: sherpa.OfflineWhisperModelConfig{
				Encoder:  encoderPath,
				Decoder:  decoderPath,
				Language: opts.Language,
				Task:     "transcribe",
			},
			Tokens:     tokensPath,
			NumThreads: e.config.NumThreads,
			Debug:      0,
		},
		DecodingMethod: "greedy_search",
		MaxActivePaths: opts.BeamSize,
	}

	recognizer := sherpa.NewOfflineRecognizer(&sherpaConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create whisper recognizer for %q", key)
	}
	e.recognizers[key] = recognizer
	return recognizer, nil
}

// transcribeChunked pipes PCM from ffmpeg and decodes fixed 30 second
// windows. Segment boundaries are the window boundaries.
func (e *WhisperEngine) transcribeChunked(ctx context.Context, recognizer *sherpa.OfflineRecognizer, inputPath string) ([]Segment, error) {
	cmd, stdout, err := pcmPipe(ctx, inputPath, e.config.SampleRate)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(stdout)
	chunkBytes := e.config.SampleRate * chunkSeconds * 2

	var segments []Segment
	var processedSamples int64
	for {
		buffer := make([]byte, chunkBytes)
		n, readErr := io.ReadFull(reader, buffer)
		if n == 0 {
			break
		}

		samples := bytesToFloat32(buffer[:n])
		start := float64(processedSamples) / float64(e.config.SampleRate)
		processedSamples += int64(len(samples))
		end := float64(processedSamples) / float64(e.config.SampleRate)

		text := e.decodeSamples(recognizer, samples)
		if text != "" {
			segments = append(segments, Segment{Start: start, End: end, Text: text})
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	if err := cmd.Wait(); err != nil && processedSamples == 0 {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return segments, nil
}

// transcribeWithVAD feeds the PCM stream through silero VAD and decodes only
// the detected speech regions, which yields real segment timestamps.
func (e *WhisperEngine) transcribeWithVAD(ctx context.Context, recognizer *sherpa.OfflineRecognizer, inputPath string) ([]Segment, error) {
	if _, err := os.Stat(e.config.VADModelPath); err != nil {
		return nil, fmt.Errorf("VAD model not found: %s", e.config.VADModelPath)
	}

	vadConfig := sherpa.VadModelConfig{
		SileroVad: sherpa.SileroVadModelConfig{
			Model:              e.config.VADModelPath,
			Threshold:          0.5,
			MinSilenceDuration: 0.5,
			MinSpeechDuration:  0.25,
			WindowSize:         512,
		},
		SampleRate: e.config.SampleRate,
		NumThreads: 1,
		Debug:      0,
	}
	vad := sherpa.NewVoiceActivityDetector(&vadConfig, chunkSeconds)
	if vad == nil {
		return nil, fmt.Errorf("failed to create VAD")
	}
	defer sherpa.DeleteVoiceActivityDetector(vad)

	cmd, stdout, err := pcmPipe(ctx, inputPath, e.config.SampleRate)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(stdout)
	windowBytes := 512 * 2

	var segments []Segment
	var sawData bool
	drain := func() {
		for !vad.IsEmpty() {
			speech := vad.Front()
			vad.Pop()

			start := float64(speech.Start) / float64(e.config.SampleRate)
			end := start + float64(len(speech.Samples))/float64(e.config.SampleRate)
			text := e.decodeSamples(recognizer, speech.Samples)
			if text != "" {
				segments = append(segments, Segment{Start: start, End: end, Text: text})
			}
		}
	}

	for {
		buffer := make([]byte, windowBytes)
		n, readErr := io.ReadFull(reader, buffer)
		if n == 0 {
			break
		}
		sawData = true
		vad.AcceptWaveform(bytesToFloat32(buffer[:n]))
		drain()

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	vad.Flush()
	drain()

	if err := cmd.Wait(); err != nil && !sawData {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return segments, nil
}

// decodeSamples runs one offline decode over a sample buffer.
func (e *WhisperEngine) decodeSamples(recognizer *sherpa.OfflineRecognizer, samples []float32) string {
	if len(samples) == 0 {
		return ""
	}

	stream := sherpa.NewOfflineStream(recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(e.config.SampleRate, samples)
	recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return ""
	}
	return strings.TrimSpace(result.Text)
}

func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment.Text != "" {
			parts = append(parts, segment.Text)
		}
	}
	return strings.Join(parts, " ")
}

// findWhisperModel locates encoder, decoder and tokens files inside a model
// directory, preferring int8 quantized variants.
func findWhisperModel(modelDir string) (encoder, decoder, tokens string, err error) {
	encoder = findModelFile(modelDir, []string{
		"encoder.int8.onnx", "encoder.onnx",
		"large-v3-encoder.int8.onnx", "large-v3-encoder.onnx",
		"turbo-encoder.int8.onnx", "turbo-encoder.onnx",
	})
	decoder = findModelFile(modelDir, []string{
		"decoder.int8.onnx", "decoder.onnx",
		"large-v3-decoder.int8.onnx", "large-v3-decoder.onnx",
		"turbo-decoder.int8.onnx", "turbo-decoder.onnx",
	})
	tokens = findModelFile(modelDir, []string{
		"tokens.txt", "large-v3-tokens.txt",
	})

	if encoder == "" {
		return "", "", "", fmt.Errorf("encoder model not found in %s", modelDir)
	}
	if decoder == "" {
		return "", "", "", fmt.Errorf("decoder model not found in %s", modelDir)
	}
	if tokens == "" {
		return "", "", "", fmt.Errorf("tokens file not found in %s", modelDir)
	}
	return encoder, decoder, tokens, nil
}

// findModelFile returns the first candidate that exists in dir.
func findModelFile(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
