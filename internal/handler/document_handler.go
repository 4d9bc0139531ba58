package handler

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/raglib/docqa/internal/model"
	"github.com/raglib/docqa/internal/pkg/errcode"
	"github.com/raglib/docqa/internal/pkg/response"
	"github.com/raglib/docqa/internal/service"
)

type DocumentHandler struct {
	ingest    *service.IngestService
	documents *service.DocumentService
	maxBytes  int64
}

func NewDocumentHandler(ingest *service.IngestService, documents *service.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, documents: documents, maxBytes: maxBytes}
}

type documentItem struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Size       string `json:"size"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	UploadedAt int64  `json:"uploaded_at"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		response.Error(c, errcode.ErrInvalidFile,
			fmt.Sprintf("file exceeds maximum size of %s", humanSize(h.maxBytes)))
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	doc, err := h.ingest.Ingest(c.Request.Context(), file.Filename, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"filename":    doc.Filename,
		"size":        humanSize(doc.SizeBytes),
		"size_bytes":  doc.SizeBytes,
		"chunk_count": doc.ChunkCount,
		"status":      doc.Status,
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]documentItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentItem(doc))
	}
	response.Success(c, gin.H{"items": items, "total": len(items)})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		response.Error(c, errcode.ErrInvalid, "filename is required")
		return
	}
	if err := h.documents.Delete(c.Request.Context(), filename); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": filename})
}

func (h *DocumentHandler) Clear(c *gin.Context) {
	if err := h.documents.Clear(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": true})
}

func toDocumentItem(doc model.Document) documentItem {
	return documentItem{
		ID:         doc.ID,
		Filename:   doc.Filename,
		Size:       humanSize(doc.SizeBytes),
		SizeBytes:  doc.SizeBytes,
		ChunkCount: doc.ChunkCount,
		Status:     doc.Status,
		UploadedAt: doc.Ctime,
	}
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
