package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	"heirloom/pkg/cache"
	utils "heirloom/pkg/utills"
)

const (
	defaultKnowledgeCategory = "general"
	defaultPageSize          = 20
	maxPageSize              = 100
	summaryLen               = 200
	batchSize                = 100
	metadataKey              = "knowledge:metadata"
	metadataTTL              = time.Minute
)

// KnowledgeService stores knowledge entries and answers filtered queries.
type KnowledgeService struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewKnowledgeService(db *gorm.DB, c *cache.Cache, log *zap.Logger) *KnowledgeService {
	return &KnowledgeService{db: db, cache: c, log: log.Named("knowledge")}
}

type KnowledgeFilter struct {
	Categories []string `json:"category"`
	Sources    []string `json:"source"`
	Tags       []string `json:"tags"`
	Search     string   `json:"-"`
	Page       int      `json:"-"`
	Limit      int      `json:"-"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type KnowledgePage struct {
	Entries    []models.KnowledgeEntry `json:"entries"`
	Pagination Pagination              `json:"pagination"`
}

func (f *KnowledgeFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Categories = compact(f.Categories)
	f.Sources = compact(f.Sources)
	f.Tags = compact(f.Tags)
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// jsonText renders a JSON column as text for LIKE matching on every driver.
func jsonText(db *gorm.DB, column string) string {
	switch db.Dialector.Name() {
	case "postgres":
		return column + "::text"
	case "mysql":
		return "CAST(" + column + " AS CHAR)"
	default:
		return column
	}
}

// List returns active entries, highest priority and most recently updated first.
func (s *KnowledgeService) List(ctx context.Context, f KnowledgeFilter) (*KnowledgePage, error) {
	f.normalize()
	db := s.db.WithContext(ctx)
	q := db.Model(&models.KnowledgeEntry{}).Where("state = ?", models.StateActive)
	if len(f.Categories) > 0 {
		q = q.Where("category IN ?", f.Categories)
	}
	if len(f.Sources) > 0 {
		q = q.Where("source IN ?", f.Sources)
	}
	if len(f.Tags) > 0 {
		tagsCol, kwCol := jsonText(db, "tags"), jsonText(db, "keywords")
		var cond *gorm.DB
		for _, tag := range f.Tags {
			pattern := "%\"" + tag + "\"%"
			if cond == nil {
				cond = db.Where(tagsCol+" LIKE ?", pattern)
			} else {
				cond = cond.Or(tagsCol+" LIKE ?", pattern)
			}
			cond = cond.Or(kwCol+" LIKE ?", pattern)
		}
		q = q.Where(cond)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(summary) LIKE ?", pattern, pattern, pattern)
	}

	q = q.Session(&gorm.Session{})
	page := &KnowledgePage{Entries: []models.KnowledgeEntry{}}
	if err := q.Count(&page.Pagination.Total).Error; err != nil {
		return nil, apperror.Internal("failed to count knowledge entries", err)
	}
	if err := q.Order("priority DESC, updated_at DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&page.Entries).Error; err != nil {
		return nil, apperror.Internal("failed to list knowledge entries", err)
	}
	page.Pagination.Page = f.Page
	page.Pagination.Limit = f.Limit
	page.Pagination.Pages = int((page.Pagination.Total + int64(f.Limit) - 1) / int64(f.Limit))
	return page, nil
}

// Search is List with a mandatory free-text query.
func (s *KnowledgeService) Search(ctx context.Context, query string, f KnowledgeFilter) (*KnowledgePage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("search query is required")
	}
	f.Search = query
	return s.List(ctx, f)
}

type KnowledgeInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Source   string   `json:"source"`
	Tags     []string `json:"tags"`
	Priority *int     `json:"priority"`
}

func (in KnowledgeInput) entry(defaultSource models.KnowledgeSource) (models.KnowledgeEntry, error) {
	title, content := strings.TrimSpace(in.Title), strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return models.KnowledgeEntry{}, apperror.Validation("title and content are required")
	}
	source := models.KnowledgeSource(strings.ToLower(strings.TrimSpace(in.Source)))
	if source == "" {
		source = defaultSource
	}
	if !source.Valid() {
		return models.KnowledgeEntry{}, apperror.Validation("unknown knowledge source " + string(source))
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = defaultKnowledgeCategory
	}
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		summary = utils.Ellipsize(content, summaryLen)
	}
	priority := 1
	if in.Priority != nil {
		priority = *in.Priority
	}
	tags := compact(in.Tags)
	if tags == nil {
		tags = []string{}
	}
	return models.KnowledgeEntry{
		Title:    title,
		Content:  content,
		Summary:  summary,
		Category: category,
		Source:   source,
		Tags:     datatypes.JSONSlice[string](tags),
		Keywords: datatypes.JSONSlice[string]{},
		Priority: priority,
		State:    models.StateActive,
	}, nil
}

func (s *KnowledgeService) Create(ctx context.Context, p auth.Principal, in KnowledgeInput) (*models.KnowledgeEntry, error) {
	if !p.Can(auth.CapManageKnowledge) {
		return nil, apperror.Forbidden("only admins and senior developers can add knowledge")
	}
	e, err := in.entry(models.SourceManual)
	if err != nil {
		return nil, err
	}
	uid := p.UserID
	e.UploadedBy = &uid
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, apperror.Internal("failed to create knowledge entry", err)
	}
	s.invalidate()
	return &e, nil
}

// BatchInsert stores dataset records in one transaction, chunked so large
// imports do not exceed driver parameter limits.
func (s *KnowledgeService) BatchInsert(ctx context.Context, records []KnowledgeInput) (int, error) {
	if len(records) == 0 {
		return 0, apperror.Validation("no records to insert")
	}
	entries := make([]models.KnowledgeEntry, 0, len(records))
	for i, r := range records {
		e, err := r.entry(models.SourceSynthetic)
		if err != nil {
			var appErr *apperror.Error
			if errors.As(err, &appErr) {
				appErr.Message = "record " + strconv.Itoa(i+1) + ": " + appErr.Message
			}
			return 0, err
		}
		entries = append(entries, e)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&entries, batchSize).Error
	})
	if err != nil {
		return 0, apperror.Internal("failed to insert knowledge batch", err)
	}
	s.invalidate()
	s.log.Info("knowledge batch inserted", zap.Int("count", len(entries)))
	return len(entries), nil
}

func (s *KnowledgeService) Delete(ctx context.Context, p auth.Principal, id uint) error {
	if !p.Can(auth.CapBatchIngest) {
		return apperror.Forbidden("only admins can delete knowledge entries")
	}
	res := s.db.WithContext(ctx).Model(&models.KnowledgeEntry{}).
		Where("id = ? AND state = ?", id, models.StateActive).
		Update("state", models.StateDeleted)
	if res.Error != nil {
		return apperror.Internal("failed to delete knowledge entry", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("knowledge entry not found")
	}
	s.invalidate()
	return nil
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type KnowledgeMetadata struct {
	Total      int64           `json:"total"`
	Categories []CategoryCount `json:"categories"`
	Sources    []SourceCount   `json:"sources"`
}

// Metadata reports entry counts per category and source. Results are cached
// briefly and dropped on every write.
func (s *KnowledgeService) Metadata(ctx context.Context) (*KnowledgeMetadata, error) {
	if v, ok := s.cache.Get(metadataKey); ok {
		if md, ok := v.(*KnowledgeMetadata); ok {
			return md, nil
		}
	}
	db := s.db.WithContext(ctx)
	md := &KnowledgeMetadata{Categories: []CategoryCount{}, Sources: []SourceCount{}}
	active := func() *gorm.DB {
		return db.Model(&models.KnowledgeEntry{}).Where("state = ?", models.StateActive)
	}
	if err := active().Count(&md.Total).Error; err != nil {
		return nil, apperror.Internal("failed to count knowledge", err)
	}
	if err := active().Select("category, COUNT(*) AS count").Group("category").Order("count DESC").Scan(&md.Categories).Error; err != nil {
		return nil, apperror.Internal("failed to group categories", err)
	}
	if err := active().Select("source, COUNT(*) AS count").Group("source").Order("count DESC").Scan(&md.Sources).Error; err != nil {
		return nil, apperror.Internal("failed to group sources", err)
	}
	s.cache.Set(metadataKey, md, metadataTTL)
	return md, nil
}

func (s *KnowledgeService) invalidate() {
	s.cache.Delete(metadataKey)
}
