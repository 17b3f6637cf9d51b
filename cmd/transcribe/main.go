package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"scriba/internal/asr"
	"scriba/internal/export"
)

func main() {
	var (
		inputFile  = flag.String("i", "", "Input audio file")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		format     = flag.String("format", "txt", "Output format: txt, json, srt, vtt")
		modelDir   = flag.String("model", "models/whisper", "Whisper model directory")
		vadModel   = flag.String("vad", "", "silero_vad.onnx path (enables VAD segmentation)")
		language   = flag.String("lang", "", "Force a language code (default: auto-detect)")
		beamSize   = flag.Int("beam", 5, "Beam size for decoding")
		numThreads = flag.Int("threads", 4, "Number of threads for inference")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i audio.mp3\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.mp3 -format srt -o subtitles.srt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.mp3 -lang ja -vad models/silero_vad.onnx\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: Input file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", *inputFile)
		os.Exit(1)
	}

	exportFormat := export.Format(*format)
	if !exportFormat.IsValid() {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: txt, json, srt, or vtt\n", *format)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Loading model from: %s\n", *modelDir)
	}

	config := asr.DefaultWhisperConfig(*modelDir)
	config.VADModelPath = *vadModel
	config.NumThreads = *numThreads

	engine, err := asr.NewWhisperEngine(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load model: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nHint: Download a whisper model first:\n")
		fmt.Fprintf(os.Stderr, "  curl -SL -O https://github.com/k2-fsa/sherpa-onnx/releases/download/asr-models/sherpa-onnx-whisper-base.tar.bz2\n")
		fmt.Fprintf(os.Stderr, "  tar xvf sherpa-onnx-whisper-base.tar.bz2 -C models/\n")
		os.Exit(1)
	}
	defer engine.Close()

	if *verbose {
		fmt.Fprintf(os.Stderr, "Transcribing: %s\n", *inputFile)
	}

	result, err := engine.Transcribe(context.Background(), *inputFile, asr.Options{
		Language:  asr.NormalizeLanguage(*language),
		BeamSize:  *beamSize,
		VadFilter: *vadModel != "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Transcription failed: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Transcribed %.2f seconds of audio\n", result.Duration)
	}

	output, err := export.Render(result, exportFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to render output: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", *outputFile)
		}
	} else {
		fmt.Println(string(output))
	}
}
