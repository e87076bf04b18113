package model

import "time"

type FileType string

const (
	FileTypeMainCode             FileType = "MAIN-CODE"
	FileTypeSupplementalCode     FileType = "SUPPLEMENTAL-CODE"
	FileTypeEncryptedResult      FileType = "ENCRYPTED-RESULT"
	FileTypeEncryptedLog         FileType = "ENCRYPTED-LOG"
	FileTypeEncryptedSecurityLog FileType = "ENCRYPTED-SECURITY-SCAN-LOG"
)

// JobFile references bytes held in the external object store. Path is
// opaque to everything but the storage layer.
type JobFile struct {
	ID         string    `json:"id"`
	StudyJobID string    `json:"study_job_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	FileType   FileType  `json:"file_type"`
	CreatedAt  time.Time `json:"created_at"`
}
