// Package export renders transcription results into downloadable formats.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"scriba/internal/asr"
)

// Format is a supported export format name.
type Format string

const (
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

// AllFormats lists every supported format in canonical order.
var AllFormats = []Format{FormatJSON, FormatTXT, FormatSRT, FormatVTT}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatTXT, FormatSRT, FormatVTT:
		return true
	}
	return false
}

// MediaType returns the HTTP content type for the format.
func (f Format) MediaType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatVTT:
		return "text/vtt"
	default:
		return "text/plain"
	}
}

// ParseFormats normalizes a user-supplied format list. Values may be comma
// separated, mixed case, or the Swagger placeholder "string"; an empty list
// means all formats.
func ParseFormats(raw []string) ([]Format, error) {
	var normalized []Format
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			candidate := strings.ToLower(strings.TrimSpace(part))
			if candidate == "" {
				continue
			}
			normalized = append(normalized, Format(candidate))
		}
	}

	if len(normalized) == 0 || (len(normalized) == 1 && normalized[0] == "string") {
		return append([]Format(nil), AllFormats...), nil
	}

	for _, format := range normalized {
		if !format.IsValid() {
			return nil, fmt.Errorf("invalid export format: %s", format)
		}
	}
	return normalized, nil
}

// Render produces the byte content of a result in the given format.
func Render(result *asr.Result, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return data, nil
	case FormatTXT:
		return []byte(result.Text), nil
	case FormatSRT:
		return []byte(ToSRT(result.Segments)), nil
	case FormatVTT:
		return []byte(ToVTT(result.Segments)), nil
	}
	return nil, fmt.Errorf("invalid export format: %s", format)
}

// ToSRT renders segments as SRT with sequential cue numbers starting at 1
// and comma millisecond separators.
func ToSRT(segments []asr.Segment) string {
	var b strings.Builder
	for i, segment := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(segment.Start, ","),
			formatTimestamp(segment.End, ","),
			strings.TrimSpace(segment.Text),
		)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// ToVTT renders segments as WebVTT with dot millisecond separators.
func ToVTT(segments []asr.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, segment := range segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			formatTimestamp(segment.Start, "."),
			formatTimestamp(segment.End, "."),
			strings.TrimSpace(segment.Text),
		)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// formatTimestamp converts seconds to HH:MM:SS<sep>mmm.
func formatTimestamp(seconds float64, separator string) string {
	total := time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	h := total / time.Hour
	m := (total % time.Hour) / time.Minute
	s := (total % time.Minute) / time.Second
	ms := (total % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, separator, ms)
}
