package model

import "time"

// Visitor is a registered guest, keyed by NIK.
// Document fields hold opaque blob names, never client supplied paths.
type Visitor struct {
	NIK            string    `gorm:"primaryKey;size:20" json:"nik"`
	FullName       string    `gorm:"size:256;not null" json:"full_name"`
	Institution    string    `gorm:"size:256;not null;index" json:"institution"`
	Phone          *string   `gorm:"size:32" json:"phone"`
	PhotoFile      *string   `gorm:"size:64" json:"photo_file"`
	KTPFile        *string   `gorm:"column:ktp_file;size:64" json:"ktp_file"`
	TaskLetterFile *string   `gorm:"size:64" json:"task_letter_file"` // legacy single letter
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// Files lists every stored document referenced by the visitor.
func (v *Visitor) Files() []string {
	var files []string
	for _, f := range []*string{v.PhotoFile, v.KTPFile, v.TaskLetterFile} {
		if f != nil && *f != "" {
			files = append(files, *f)
		}
	}
	return files
}
