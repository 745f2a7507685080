package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/pkg/database"
	"github.com/askdocs/askdocs/pkg/models"
)

// DocumentStore is the record-store surface the API needs
type DocumentStore interface {
	CreateDocument(ctx context.Context, content string, metadata models.Metadata) (*models.Document, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error)
}

// EventPublisher enqueues ingestion events for the embedding workers
type EventPublisher interface {
	Publish(ctx context.Context, event models.IngestionEvent) error
}

// QueryService answers questions with cited sources
type QueryService interface {
	Answer(ctx context.Context, req models.QueryRequest) (*models.RAGAnswer, error)
}

// createDocument handles POST /api/documents/. The record insert must
// succeed; a failure to enqueue the ingestion event is logged but does
// not fail the request, since submission and embedding are decoupled.
func (s *Server) createDocument(c *gin.Context) {
	var req models.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	doc, err := s.store.CreateDocument(c.Request.Context(), req.Content, req.Metadata)
	if err != nil {
		s.logger.Error("Failed to create document", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}

	event := models.IngestionEvent{
		DocumentID: doc.ID,
		Content:    doc.Content,
		Metadata:   doc.Metadata,
	}
	if err := s.publisher.Publish(c.Request.Context(), event); err != nil {
		s.logger.Error("Failed to enqueue document for embedding", map[string]interface{}{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}

	c.JSON(http.StatusOK, doc)
}

// listDocuments handles GET /api/documents/?skip=&limit=
func (s *Server) listDocuments(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid skip parameter"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}

	docs, err := s.store.ListDocuments(c.Request.Context(), skip, limit)
	if err != nil {
		s.logger.Error("Failed to list documents", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve documents"})
		return
	}

	c.JSON(http.StatusOK, docs)
}

// getDocument handles GET /api/documents/:id
func (s *Server) getDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, err := s.store.GetDocument(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to get document", map[string]interface{}{
			"document_id": id,
			"error":       err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve document"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// queryDocuments handles POST /api/query/
func (s *Server) queryDocuments(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	answer, err := s.query.Answer(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("Failed to process query", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process query"})
		return
	}

	c.JSON(http.StatusOK, answer)
}

// root handles GET /
func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the RAG System API"})
}
