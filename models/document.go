package models

import "time"

type Document struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Filename      string    `gorm:"size:255;not null" json:"filename"`
	OriginalName  string    `gorm:"size:255;not null" json:"originalName"`
	FilePath      string    `gorm:"size:500;not null" json:"filePath"`
	FileType      string    `gorm:"size:20" json:"fileType"`
	MimeType      string    `gorm:"size:120" json:"mimeType"`
	FileSize      int64     `json:"fileSize"`
	Processed     bool      `gorm:"not null" json:"processed"`
	ExtractedText string    `gorm:"type:text" json:"-"`
	Summary       string    `gorm:"type:text" json:"summary"`
	UploadedBy    uint      `gorm:"not null;index" json:"uploadedBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
