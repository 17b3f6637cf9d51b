package download

import (
	"errors"
	"fmt"
	"strings"

	"scriba/internal/export"
	"scriba/internal/storage"
	"scriba/internal/store"
)

// DefaultEmptyPlaceholder is the body used for jobs without a text result
// when include_empty_jobs is requested without a custom placeholder.
const DefaultEmptyPlaceholder = "[no txt result for this job]"

// maxPlaceholderLength caps user-supplied placeholders embedded in output.
const maxPlaceholderLength = 200

// Label styles for combined text section headers.
const (
	LabelJobID    = "job_id"
	LabelFilename = "filename"
)

// Separator styles between job sections.
const (
	SeparatorRule  = "rule"  // a --- line between sections
	SeparatorBlank = "blank" // just a blank line
)

// CombinedOptions controls the combined text document layout.
type CombinedOptions struct {
	Label             string // LabelJobID or LabelFilename
	IncludeTimestamps bool
	IncludeMetrics    bool
	IncludeEmptyJobs  bool
	EmptyPlaceholder  string
	Separator         string // SeparatorRule or SeparatorBlank
	PrefixBatch       bool   // prefix headers with the owning batch id
}

// SanitizePlaceholder makes a user-supplied placeholder safe to embed:
// newlines become spaces, whitespace runs collapse, and the result is capped
// at 200 characters. An empty result falls back to the default.
func SanitizePlaceholder(raw string) string {
	sanitized := strings.NewReplacer("\r", " ", "\n", " ").Replace(raw)
	sanitized = strings.Join(strings.Fields(sanitized), " ")
	if sanitized == "" {
		return DefaultEmptyPlaceholder
	}
	if runes := []rune(sanitized); len(runes) > maxPlaceholderLength {
		sanitized = string(runes[:maxPlaceholderLength])
	}
	return sanitized
}

// BuildCombinedText concatenates the txt results of the given jobs, in job
// order, into one document. Each section is a "## <label>" header, optional
// metric and timestamp lines, a blank line and the body. Jobs without a txt
// result are skipped unless IncludeEmptyJobs is set, in which case the
// sanitized placeholder stands in. Zero sections yield an empty document.
func BuildCombinedText(jobStore *store.Store, jobs []storage.BatchJob, opts CombinedOptions) (string, error) {
	separator := "\n\n---\n\n"
	if opts.Separator == SeparatorBlank {
		separator = "\n\n"
	}
	placeholder := SanitizePlaceholder(opts.EmptyPlaceholder)

	var sections []string
	for _, job := range jobs {
		meta, err := jobStore.LoadMeta(job.JobID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}

		var body string
		content, err := jobStore.ReadExport(job.JobID, export.FormatTXT)
		switch {
		case err == nil:
			body = strings.TrimSpace(string(content))
		case errors.Is(err, store.ErrNotFound):
			if !opts.IncludeEmptyJobs {
				continue
			}
			body = placeholder
		default:
			return "", err
		}

		lines := []string{"## " + sectionLabel(job, opts)}
		if opts.IncludeMetrics {
			lines = append(lines,
				"status: "+metaStatus(meta),
				"process_time_seconds: "+metaProcessTime(meta),
			)
		}
		if opts.IncludeTimestamps {
			lines = append(lines,
				"created_at: "+metaCreatedAt(meta),
				"finished_at: "+metaFinishedAt(meta),
			)
		}
		lines = append(lines, "", body)
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return strings.Join(sections, separator), nil
}

func sectionLabel(job storage.BatchJob, opts CombinedOptions) string {
	label := job.JobID
	if opts.Label == LabelFilename && job.Filename != "" {
		label = job.Filename
	}
	if opts.PrefixBatch {
		return job.BatchID + "/" + label
	}
	return label
}

func metaStatus(meta *store.JobMeta) string {
	if meta == nil {
		return "N/A"
	}
	return meta.Status
}

func metaProcessTime(meta *store.JobMeta) string {
	if meta == nil || meta.FinishedAt == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", meta.ProcessTimeSeconds)
}

func metaCreatedAt(meta *store.JobMeta) string {
	if meta == nil || meta.CreatedAt.IsZero() {
		return "N/A"
	}
	return meta.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
}

func metaFinishedAt(meta *store.JobMeta) string {
	if meta == nil || meta.FinishedAt == nil {
		return "N/A"
	}
	return meta.FinishedAt.Format("2006-01-02T15:04:05Z07:00")
}
