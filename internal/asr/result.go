package asr

// Segment is a timestamped piece of the transcription.
type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// Result is the complete output of one transcription run.
type Result struct {
	Language string    `json:"language"` // forced code or "auto"
	Duration float64   `json:"duration"` // audio duration in seconds
	Text     string    `json:"text"`     // full concatenated text
	Segments []Segment `json:"segments"`
}
