package datastore

import "time"

// ArtifactRecord maps to the image_records table: one row per persisted
// pipeline run.
type ArtifactRecord struct {
	ID            int64     `json:"id"`
	Prompt        string    `json:"prompt"`
	ImageFilename string    `json:"image_filename"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}
