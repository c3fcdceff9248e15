package model

import "time"

// TaskLetter is a PDF attached to a visit.
type TaskLetter struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	VisitID          int64     `gorm:"not null;index" json:"visit_id"`
	FileName         string    `gorm:"size:64;not null;uniqueIndex" json:"file_name"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	UploadedAt       time.Time `gorm:"not null" json:"uploaded_at"`
}
