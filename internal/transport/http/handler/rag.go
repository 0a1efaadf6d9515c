package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-rag/internal/app"
	"gopherai-rag/internal/rag"
	"gopherai-rag/internal/transport/http/middleware"
	"gopherai-rag/internal/transport/http/response"
)

type RAGService interface {
	Ingest(ctx context.Context, userID uint, data []byte) (*rag.IngestResult, error)
	EmbedText(ctx context.Context, userID uint, text string) (*app.EmbedResult, error)
	Answer(ctx context.Context, userID uint, query string, history []rag.Turn) (string, error)
	Welcome(ctx context.Context, userID uint) (string, error)
}

type RAGHandler struct {
	ragService     RAGService
	maxUploadBytes int64
}

type EmbedRequest struct {
	Text string `json:"text" binding:"required"`
}

type AnswerRequest struct {
	Query   string     `json:"query" binding:"required"`
	History []rag.Turn `json:"history"`
}

func NewRAGHandler(ragService RAGService, maxUploadBytes int64) *RAGHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &RAGHandler{ragService: ragService, maxUploadBytes: maxUploadBytes}
}

// Ingest accepts one PDF in the multipart field "file".
func (h *RAGHandler) Ingest(c *gin.Context) {
	userID := middleware.UserID(c)

	// Leave room for the multipart framing around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		h.tooLarge(c)
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are supported")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "cannot read uploaded file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "cannot read uploaded file")
		return
	}

	result, err := h.ragService.Ingest(c.Request.Context(), userID, data)
	if err != nil {
		response.FromError(c, err, "ingest failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Embed(c *gin.Context) {
	var req EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.EmbedText(c.Request.Context(), middleware.UserID(c), req.Text)
	if err != nil {
		response.FromError(c, err, "embed failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	answer, err := h.ragService.Answer(c.Request.Context(), middleware.UserID(c), req.Query, req.History)
	if err != nil {
		response.FromError(c, err, "answer failed")
		return
	}
	response.OK(c, gin.H{"response": answer})
}

func (h *RAGHandler) Welcome(c *gin.Context) {
	message, err := h.ragService.Welcome(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err, "welcome failed")
		return
	}
	response.OK(c, gin.H{"message": message})
}

func (h *RAGHandler) tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
		fmt.Sprintf("file exceeds %d MB", h.maxUploadBytes>>20))
}
