package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"gopherai-rag/internal/app"
	"gopherai-rag/internal/rag"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeNotFound           = 40400
	CodeSessionNotFound    = 40401
	CodeProductNotFound    = 40402
	CodeUserNotFound       = 40403
	CodeMessageNotFound    = 40404
	CodeFileNotFound       = 40405
	CodePayloadTooLarge    = 41300
	CodeExtraction         = 42200
	CodeInternalServer     = 50000
	CodeEmbeddingProvider  = 50201
	CodeModelProvider      = 50202
	CodeToolArgument       = 50203
	CodeToolExecution      = 50204
	CodeVectorStore        = 50300
	CodeMessageEnqueue     = 50301
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

type mapping struct {
	target error
	status int
	code   int
}

// mappings is ordered: the first target matched by errors.Is wins.
var mappings = []mapping{
	{rag.ErrValidation, http.StatusBadRequest, CodeBadRequest},
	{rag.ErrExtraction, http.StatusUnprocessableEntity, CodeExtraction},
	{rag.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{rag.ErrToolArgument, http.StatusBadGateway, CodeToolArgument},
	{rag.ErrToolExecution, http.StatusBadGateway, CodeToolExecution},
	{rag.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingProvider},
	{rag.ErrModelProvider, http.StatusBadGateway, CodeModelProvider},
	{rag.ErrVectorStore, http.StatusServiceUnavailable, CodeVectorStore},
	{app.ErrInvalidInput, http.StatusBadRequest, CodeBadRequest},
	{app.ErrMessageEmpty, http.StatusBadRequest, CodeBadRequest},
	{app.ErrUsernameExists, http.StatusConflict, CodeUsernameExists},
	{app.ErrEmailExists, http.StatusConflict, CodeEmailExists},
	{app.ErrInvalidCredential, http.StatusUnauthorized, CodeInvalidCredentials},
	{app.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
	{app.ErrProductNotFound, http.StatusNotFound, CodeProductNotFound},
	{app.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
	{app.ErrMessageNotFound, http.StatusNotFound, CodeMessageNotFound},
	{app.ErrFileNotFound, http.StatusNotFound, CodeFileNotFound},
	{app.ErrMessageEnqueue, http.StatusServiceUnavailable, CodeMessageEnqueue},
}

// Status maps err to the HTTP status and response code. Unknown errors are
// internal.
func Status(err error) (int, int) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternalServer
}

// FromError writes the envelope for err. Internal errors are logged and
// hidden behind fallback. A partial ingest also reports the stored chunks.
func FromError(c *gin.Context, err error, fallback string) {
	status, code := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		ctxzap.Error(c.Request.Context(), fallback, zap.Error(err))
		message = fallback
	}

	resp := APIResponse{Code: code, Message: message}
	var ingestErr *rag.IngestError
	if errors.As(err, &ingestErr) && ingestErr.Partial() {
		resp.Data = rag.IngestResult{ChunksStored: ingestErr.Stored}
	}
	c.JSON(status, resp)
}
