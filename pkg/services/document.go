package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	utils "heirloom/pkg/utills"
)

const (
	MimePDF      = "application/pdf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	docxPlaceholder = "Text extraction for Word documents is not available yet. The original file is stored for reference."
)

var mimeByExt = map[string]string{
	".pdf":  MimePDF,
	".txt":  MimeText,
	".md":   MimeMarkdown,
	".docx": MimeDOCX,
}

var allowedMimes = map[string]bool{MimePDF: true, MimeText: true, MimeMarkdown: true, MimeDOCX: true}

type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

type IngestResult struct {
	Document models.Document       `json:"document"`
	Entry    models.KnowledgeEntry `json:"knowledgeEntry"`
}

// DocumentService turns uploaded files into knowledge entries.
type DocumentService struct {
	db        *gorm.DB
	store     FileStore
	knowledge *KnowledgeService
	maxBytes  int64
	log       *zap.Logger
}

func NewDocumentService(db *gorm.DB, store FileStore, knowledge *KnowledgeService, maxBytes int64, log *zap.Logger) *DocumentService {
	return &DocumentService{db: db, store: store, knowledge: knowledge, maxBytes: maxBytes, log: log.Named("documents")}
}

// resolveMime trusts the declared type unless it is missing or generic, in
// which case the extension decides.
func resolveMime(filename, declared string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if allowedMimes[declared] {
		return declared
	}
	if byExt, ok := mimeByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		if declared == "" || declared == "application/octet-stream" || declared == "text/x-markdown" {
			return byExt
		}
	}
	return declared
}

func extractText(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case MimePDF:
		return ExtractPDFText(data)
	case MimeText, MimeMarkdown:
		if !utf8.Valid(data) {
			return "", errors.New("file is not valid UTF-8 text")
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return docxPlaceholder, nil
	}
}

// Ingest validates, extracts and stores an upload. Nothing is persisted
// unless extraction succeeds; a failed database write removes the stored file.
func (s *DocumentService) Ingest(ctx context.Context, p auth.Principal, up Upload) (*IngestResult, error) {
	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "" || name == "." || name == "/" {
		return nil, apperror.Validation("file name is required")
	}
	if len(up.Data) == 0 {
		return nil, apperror.Validation("uploaded file is empty")
	}
	if int64(len(up.Data)) > s.maxBytes {
		return nil, apperror.Validation(fmt.Sprintf("file too large, the limit is %d MB", s.maxBytes>>20))
	}
	mimeType := resolveMime(name, up.MimeType)
	if !allowedMimes[mimeType] {
		return nil, apperror.Validation("unsupported file type, upload PDF, text, Markdown or Word documents")
	}

	text, err := extractText(mimeType, up.Data)
	if err != nil {
		return nil, apperror.Processing("could not extract text from document", err)
	}
	if text == "" {
		return nil, apperror.Processing("document contains no text", nil)
	}

	summary := Summarize(text)
	keywords := Keywords(text)
	category := Categorize(text, name)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	key := fmt.Sprintf("%d/%s%s", p.UserID, uuid.NewString(), filepath.Ext(name))
	location, err := s.store.Save(ctx, key, up.Data, mimeType)
	if err != nil {
		return nil, apperror.Internal("failed to store document", err)
	}

	uid := p.UserID
	res := &IngestResult{
		Document: models.Document{
			Filename:      filepath.Base(key),
			OriginalName:  name,
			FilePath:      location,
			FileType:      ext,
			MimeType:      mimeType,
			FileSize:      int64(len(up.Data)),
			Processed:     true,
			ExtractedText: text,
			Summary:       summary,
			UploadedBy:    p.UserID,
		},
		Entry: models.KnowledgeEntry{
			Title:      utils.TrimExt(name),
			Content:    text,
			Summary:    summary,
			Category:   category,
			Source:     models.SourceUpload,
			Tags:       datatypes.JSONSlice[string](keywords),
			Keywords:   datatypes.JSONSlice[string](keywords),
			Priority:   1,
			FileType:   ext,
			FilePath:   location,
			FileSize:   int64(len(up.Data)),
			UploadedBy: &uid,
			State:      models.StateActive,
		},
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&res.Document).Error; err != nil {
			return err
		}
		return tx.Create(&res.Entry).Error
	})
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), location); derr != nil {
			s.log.Error("orphaned upload", zap.String("location", location), zap.Error(derr))
		}
		return nil, apperror.Internal("failed to save document", err)
	}
	s.knowledge.invalidate()
	s.log.Info("document ingested",
		zap.Uint("document_id", res.Document.ID),
		zap.String("category", category),
		zap.Int("keywords", len(keywords)))
	return res, nil
}

type DocumentView struct {
	models.Document
	URL string `json:"url"`
}

func (s *DocumentService) ListMine(ctx context.Context, userID uint) ([]DocumentView, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).Where("uploaded_by = ?", userID).Order("created_at DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, apperror.Internal("failed to list documents", err)
	}
	out := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentView{Document: d, URL: s.store.URL(d.FilePath)})
	}
	return out, nil
}

// Delete removes an owned document, the knowledge entries derived from it and
// the stored file.
func (s *DocumentService) Delete(ctx context.Context, p auth.Principal, id uint) error {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("id = ? AND uploaded_by = ?", id, p.UserID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("document not found")
	}
	if err != nil {
		return apperror.Internal("failed to load document", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.KnowledgeEntry{}).Where("file_path = ?", doc.FilePath).Update("state", models.StateDeleted).Error; err != nil {
			return err
		}
		return tx.Delete(&doc).Error
	})
	if err != nil {
		return apperror.Internal("failed to delete document", err)
	}
	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		s.log.Warn("stored file not removed", zap.String("location", doc.FilePath), zap.Error(err))
	}
	s.knowledge.invalidate()
	return nil
}

type TypeCount struct {
	FileType string `json:"fileType"`
	Count    int64  `json:"count"`
}

type DocumentStats struct {
	TotalDocuments     int64       `json:"totalDocuments"`
	ProcessedDocuments int64       `json:"processedDocuments"`
	TotalSize          int64       `json:"totalSize"`
	AverageSize        float64     `json:"averageSize"`
	ByType             []TypeCount `json:"byType"`
}

func (s *DocumentService) Stats(ctx context.Context, p auth.Principal) (*DocumentStats, error) {
	if !p.Can(auth.CapViewDocumentStats) {
		return nil, apperror.Forbidden("only admins can view document statistics")
	}
	db := s.db.WithContext(ctx)
	out := &DocumentStats{ByType: []TypeCount{}}
	var agg struct {
		Total int64
		Size  int64
	}
	if err := db.Model(&models.Document{}).
		Select("COUNT(*) AS total, COALESCE(SUM(file_size), 0) AS size").
		Scan(&agg).Error; err != nil {
		return nil, apperror.Internal("failed to aggregate documents", err)
	}
	out.TotalDocuments, out.TotalSize = agg.Total, agg.Size
	if agg.Total > 0 {
		out.AverageSize = float64(agg.Size) / float64(agg.Total)
	}
	if err := db.Model(&models.Document{}).Where("processed = ?", true).Count(&out.ProcessedDocuments).Error; err != nil {
		return nil, apperror.Internal("failed to count processed documents", err)
	}
	if err := db.Model(&models.Document{}).
		Select("file_type, COUNT(*) AS count").
		Group("file_type").
		Order("count DESC").
		Scan(&out.ByType).Error; err != nil {
		return nil, apperror.Internal("failed to group documents", err)
	}
	return out, nil
}
