// Package download builds combined artifacts (ZIP archives, combined text
// documents) across a batch's or group's jobs.
package download

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"

	"scriba/internal/export"
	"scriba/internal/storage"
	"scriba/internal/store"
)

// BuildZip packs the export artifacts of the given jobs into a ZIP archive,
// in job order. An empty formats slice means every format available per job.
// Jobs lacking a requested artifact are skipped, not errors; the returned
// list names the entries actually included. Zero matches still yields a
// valid empty archive.
//
// When prefixBatch is set, entries are named <batch>/<job>/result.<fmt>
// (group downloads span batches); otherwise <job>/result.<fmt>.
func BuildZip(jobStore *store.Store, jobs []storage.BatchJob, formats []export.Format, prefixBatch bool) ([]byte, []string, error) {
	if len(formats) == 0 {
		formats = export.AllFormats
	}

	var buffer bytes.Buffer
	archive := zip.NewWriter(&buffer)
	var included []string

	for _, job := range jobs {
		for _, format := range formats {
			path := jobStore.ArtifactPath(job.BatchID, job.JobID, format)
			content, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
			}

			name := fmt.Sprintf("%s/result.%s", job.JobID, format)
			if prefixBatch {
				name = fmt.Sprintf("%s/%s/result.%s", job.BatchID, job.JobID, format)
			}
			entry, err := archive.Create(name)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create zip entry: %w", err)
			}
			if _, err := entry.Write(content); err != nil {
				return nil, nil, fmt.Errorf("failed to write zip entry: %w", err)
			}
			included = append(included, name)
		}
	}

	if err := archive.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buffer.Bytes(), included, nil
}
