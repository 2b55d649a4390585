package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"heirloom/pkg/apperror"
	svc "heirloom/pkg/services"
)

// queryList accepts both repeated parameters and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func ListKnowledge(knowledge *svc.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := knowledge.List(c.Request.Context(), svc.KnowledgeFilter{
			Categories: queryList(c, "category"),
			Sources:    queryList(c, "source"),
			Tags:       queryList(c, "tag"),
			Search:     c.Query("search"),
			Page:       queryInt(c, "page"),
			Limit:      queryInt(c, "limit"),
		})
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"entries": page.Entries, "pagination": page.Pagination})
	}
}

func SearchKnowledge(knowledge *svc.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Query   string              `json:"query"`
			Filters svc.KnowledgeFilter `json:"filters"`
			Page    int                 `json:"page"`
			Limit   int                 `json:"limit"`
		}
		if !bindJSON(c, &body) {
			return
		}
		body.Filters.Page, body.Filters.Limit = body.Page, body.Limit
		page, err := knowledge.Search(c.Request.Context(), body.Query, body.Filters)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"query": strings.TrimSpace(body.Query), "entries": page.Entries, "pagination": page.Pagination})
	}
}

func KnowledgeMetadata(knowledge *svc.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		md, err := knowledge.Metadata(c.Request.Context())
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"metadata": md})
	}
}

func CreateKnowledge(knowledge *svc.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var body svc.KnowledgeInput
		if !bindJSON(c, &body) {
			return
		}
		e, err := knowledge.Create(c.Request.Context(), p, body)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"entry": e})
	}
}

func BatchKnowledge(knowledge *svc.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Records []svc.KnowledgeInput `json:"records"`
		}
		if !bindJSON(c, &body) {
			return
		}
		n, err := knowledge.BatchInsert(c.Request.Context(), body.Records)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"inserted": n})
	}
}

func DeleteKnowledge(knowledge *svc.KnowledgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := knowledge.Delete(c.Request.Context(), p, id); err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"deleted": id})
	}
}

// UploadDocument ingests the multipart field "document".
func UploadDocument(documents *svc.DocumentService, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
		fh, err := c.FormFile("document")
		if err != nil {
			c.Error(apperror.Validation("multipart field \"document\" is required"))
			return
		}
		if fh.Size > maxBytes {
			c.Error(apperror.Validation("file too large, the limit is " + strconv.FormatInt(maxBytes>>20, 10) + " MB"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.Error(apperror.Internal("failed to open upload", err))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.Error(apperror.Internal("failed to read upload", err))
			return
		}
		res, err := documents.Ingest(c.Request.Context(), p, svc.Upload{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"document": res.Document, "knowledgeEntry": res.Entry})
	}
}

func MyDocuments(documents *svc.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		docs, err := documents.ListMine(c.Request.Context(), p.UserID)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"documents": docs})
	}
}

func DeleteDocument(documents *svc.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := documents.Delete(c.Request.Context(), p, id); err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"deleted": id})
	}
}

func DocumentStats(documents *svc.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		stats, err := documents.Stats(c.Request.Context(), p)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"stats": stats})
	}
}
