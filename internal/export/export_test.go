package export

import (
	"strings"
	"testing"

	"scriba/internal/asr"
)

func TestToSRT(t *testing.T) {
	segments := []asr.Segment{
		{Start: 0, End: 2.5, Text: " Hello world "},
		{Start: 2.5, End: 5.04, Text: "Second segment"},
	}

	want := "1\n" +
		"00:00:00,000 --> 00:00:02,500\n" +
		"Hello world\n" +
		"\n" +
		"2\n" +
		"00:00:02,500 --> 00:00:05,040\n" +
		"Second segment\n"

	got := ToSRT(segments)
	if got != want {
		t.Errorf("ToSRT mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestToVTT(t *testing.T) {
	segments := []asr.Segment{
		{Start: 1.0, End: 3.25, Text: "First"},
	}

	want := "WEBVTT\n\n" +
		"00:00:01.000 --> 00:00:03.250\n" +
		"First\n"

	got := ToVTT(segments)
	if got != want {
		t.Errorf("ToVTT mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestToSRT_Empty(t *testing.T) {
	got := ToSRT(nil)
	if got != "\n" {
		t.Errorf("expected empty SRT document, got %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds   float64
		separator string
		want      string
	}{
		{0, ",", "00:00:00,000"},
		{1.5, ",", "00:00:01,500"},
		{1.9996, ",", "00:00:02,000"},
		{59.999, ".", "00:00:59.999"},
		{61.25, ",", "00:01:01,250"},
		{3661.007, ".", "01:01:01.007"},
	}

	for _, tt := range tests {
		if got := formatTimestamp(tt.seconds, tt.separator); got != tt.want {
			t.Errorf("formatTimestamp(%v, %q) = %q, want %q", tt.seconds, tt.separator, got, tt.want)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []Format
		wantErr bool
	}{
		{name: "empty means all", raw: nil, want: AllFormats},
		{name: "swagger placeholder means all", raw: []string{"string"}, want: AllFormats},
		{name: "comma separated", raw: []string{"txt,srt"}, want: []Format{FormatTXT, FormatSRT}},
		{name: "repeated values kept", raw: []string{"txt", "txt"}, want: []Format{FormatTXT, FormatTXT}},
		{name: "mixed case and spaces", raw: []string{" JSON ", "Vtt"}, want: []Format{FormatJSON, FormatVTT}},
		{name: "invalid rejected", raw: []string{"txt", "pdf"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormats(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	result := &asr.Result{
		Language: "en",
		Duration: 2.5,
		Text:     "hello",
		Segments: []asr.Segment{{Start: 0, End: 2.5, Text: "hello"}},
	}

	txt, err := Render(result, FormatTXT)
	if err != nil {
		t.Fatalf("Render txt: %v", err)
	}
	if string(txt) != "hello" {
		t.Errorf("txt render = %q", txt)
	}

	jsonOut, err := Render(result, FormatJSON)
	if err != nil {
		t.Fatalf("Render json: %v", err)
	}
	if !strings.Contains(string(jsonOut), `"language": "en"`) {
		t.Errorf("json render missing language: %s", jsonOut)
	}

	if _, err := Render(result, Format("pdf")); err == nil {
		t.Error("expected error for unknown format")
	}
}
