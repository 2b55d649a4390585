package models

import (
	"time"

	"gorm.io/datatypes"
)

type KnowledgeSource string

const (
	SourceManual      KnowledgeSource = "manual"
	SourceUpload      KnowledgeSource = "upload"
	SourceSynthetic   KnowledgeSource = "synthetic"
	SourceKaggle      KnowledgeSource = "kaggle"
	SourceHuggingFace KnowledgeSource = "huggingface"
	SourceWebScraping KnowledgeSource = "web-scraping"
)

var KnowledgeSources = []KnowledgeSource{
	SourceManual, SourceUpload, SourceSynthetic, SourceKaggle, SourceHuggingFace, SourceWebScraping,
}

func (s KnowledgeSource) Valid() bool {
	for _, k := range KnowledgeSources {
		if k == s {
			return true
		}
	}
	return false
}

type KnowledgeEntry struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	Title      string                      `gorm:"size:300;not null" json:"title"`
	Content    string                      `gorm:"type:text;not null" json:"content"`
	Summary    string                      `gorm:"type:text" json:"summary"`
	Category   string                      `gorm:"size:50;not null;index" json:"category"`
	Source     KnowledgeSource             `gorm:"size:20;not null;index" json:"source"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	Keywords   datatypes.JSONSlice[string] `json:"keywords"`
	Priority   int                         `gorm:"not null;index" json:"priority"`
	FileType   string                      `gorm:"size:20" json:"fileType,omitempty"`
	FilePath   string                      `gorm:"size:500;index" json:"filePath,omitempty"`
	FileSize   int64                       `json:"fileSize,omitempty"`
	UploadedBy *uint                       `gorm:"index" json:"uploadedBy,omitempty"`
	State      RecordState                 `gorm:"size:10;not null;index" json:"-"`
	CreatedAt  time.Time                   `json:"createdAt"`
	UpdatedAt  time.Time                   `gorm:"index" json:"updatedAt"`
}
