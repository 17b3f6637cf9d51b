package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"scriba/internal/asr"
	"scriba/internal/export"
)

const (
	minBeamSize     = 1
	maxBeamSize     = 10
	defaultBeamSize = 5
)

// parseOptions reads the shared decoding options. getter abstracts over
// query parameters (sync endpoints) and form values (batch endpoints).
func parseOptions(getter func(string) string) (asr.Options, error) {
	opts := asr.Options{
		Language:  asr.NormalizeLanguage(getter("language")),
		BeamSize:  defaultBeamSize,
		VadFilter: true,
	}

	if raw := getter("beam_size"); raw != "" {
		beamSize, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("beam_size must be an integer")
		}
		opts.BeamSize = beamSize
	}
	if opts.BeamSize < minBeamSize || opts.BeamSize > maxBeamSize {
		return opts, fmt.Errorf("beam_size must be between %d and %d", minBeamSize, maxBeamSize)
	}

	if raw := getter("vad_filter"); raw != "" {
		vadFilter, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("vad_filter must be a boolean")
		}
		opts.VadFilter = vadFilter
	}

	return opts, nil
}

// parseSingleFormat validates a single-format selector, with a default when
// the parameter is absent.
func parseSingleFormat(raw, fallback string) (export.Format, error) {
	if raw == "" {
		raw = fallback
	}
	format := export.Format(raw)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid format: %s", raw)
	}
	return format, nil
}

func boolParam(c echo.Context, name string, fallback bool) bool {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func errorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
