package model

import "time"

type UploadType string

const (
	UploadLink UploadType = "link"
	UploadFile UploadType = "file"
)

// PendingUpload is the first half of a two-step bot submission, waiting for
// its "Name | Category | Size" line.
type PendingUpload struct {
	Type      UploadType `json:"type"`
	Link      string     `json:"link,omitempty"`
	File      *File      `json:"file,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
