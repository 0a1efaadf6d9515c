package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gopherai-rag/internal/app"
	"gopherai-rag/internal/model"
	"gopherai-rag/internal/transport/http/middleware"
	"gopherai-rag/internal/transport/http/response"
)

type ChatService interface {
	CreateSession(ctx context.Context, input app.CreateSessionInput) (*model.Session, error)
	ListSessions(ctx context.Context, userID uint) ([]model.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID uint) error
	SendMessage(ctx context.Context, input app.SendMessageInput) (*app.SendMessageResult, error)
	GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.Message, error)
	ListMessageFiles(ctx context.Context, userID, messageID uint) ([]model.MessageFile, error)
	AddMessageFile(ctx context.Context, input app.AddMessageFileInput) (*model.MessageFile, error)
	DeleteMessageFile(ctx context.Context, userID, fileID uint) error
}

type ChatHandler struct {
	chatService ChatService
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=128"`
}

type SendMessageRequest struct {
	SessionID uint   `json:"session_id" binding:"required,gt=0"`
	Content   string `json:"content" binding:"required"`
}

type AddMessageFileRequest struct {
	FileURL  string `json:"file_url" binding:"required,max=1024"`
	FileName string `json:"file_name" binding:"max=255"`
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.CreateSession(c.Request.Context(), app.CreateSessionInput{
		UserID: userID,
		Title:  req.Title,
	})
	if err != nil {
		response.FromError(c, err, "create session failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessions, err := h.chatService.ListSessions(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err, "list sessions failed")
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	response.OK(c, sessions)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessionID, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	if err := h.chatService.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		response.FromError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		UserID:    userID,
		SessionID: req.SessionID,
		Content:   req.Content,
	})
	if err != nil {
		response.FromError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessionID64, err := strconv.ParseUint(c.Query("session_id"), 10, 64)
	if err != nil || sessionID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session_id")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), userID, uint(sessionID64), limit)
	if err != nil {
		response.FromError(c, err, "get history failed")
		return
	}
	if history == nil {
		history = []model.Message{}
	}
	response.OK(c, history)
}

func (h *ChatHandler) ListMessageFiles(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	messageID, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid message id")
		return
	}

	files, err := h.chatService.ListMessageFiles(c.Request.Context(), userID, messageID)
	if err != nil {
		response.FromError(c, err, "list message files failed")
		return
	}
	if files == nil {
		files = []model.MessageFile{}
	}
	response.OK(c, files)
}

func (h *ChatHandler) AddMessageFile(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	messageID, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid message id")
		return
	}

	var req AddMessageFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	file, err := h.chatService.AddMessageFile(c.Request.Context(), app.AddMessageFileInput{
		UserID:    userID,
		MessageID: messageID,
		FileURL:   req.FileURL,
		FileName:  req.FileName,
	})
	if err != nil {
		response.FromError(c, err, "add message file failed")
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Code: response.CodeOK, Message: "ok", Data: file})
}

func (h *ChatHandler) DeleteMessageFile(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileID, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid file id")
		return
	}

	if err := h.chatService.DeleteMessageFile(c.Request.Context(), userID, fileID); err != nil {
		response.FromError(c, err, "delete message file failed")
		return
	}
	response.OK(c, gin.H{"deleted_file_id": fileID})
}

func uintParam(c *gin.Context, key string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
