package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"gopherai-rag/internal/logger"
	"gopherai-rag/internal/model"
	"gopherai-rag/internal/rag"
)

const (
	persistTimeout = 5 * time.Second
	maxTitleRunes  = 128
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
	ErrMessageNotFound = errors.New("message not found")
	ErrFileNotFound    = errors.New("file not found")
)

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	ListByUserID(ctx context.Context, userID uint) ([]model.Session, error)
	GetByIDAndUserID(ctx context.Context, sessionID, userID uint) (*model.Session, error)
	Touch(ctx context.Context, sessionID uint) error
	DeleteByIDAndUserID(ctx context.Context, sessionID, userID uint) error
}

type MessageStore interface {
	GetByID(ctx context.Context, id uint) (*model.Message, error)
	ListBySessionID(ctx context.Context, sessionID uint, limit int) ([]model.Message, error)
	ListRecentBySessionID(ctx context.Context, sessionID uint, limit int) ([]model.Message, error)
	DeleteBySessionID(ctx context.Context, sessionID uint) error
}

type MessageFileStore interface {
	Create(ctx context.Context, file *model.MessageFile) error
	GetByID(ctx context.Context, id uint) (*model.MessageFile, error)
	ListByMessageIDs(ctx context.Context, messageIDs []uint) ([]model.MessageFile, error)
	Delete(ctx context.Context, id uint) error
	DeleteBySessionID(ctx context.Context, sessionID uint) error
}

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	Invalidate(ctx context.Context, sessionID uint) error
}

type Answerer interface {
	Answer(ctx context.Context, query string, history []rag.Turn) (string, error)
}

type ChatService struct {
	sessions     SessionStore
	messages     MessageStore
	files        MessageFileStore
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	responder    Answerer
	maxContext   int
	now          func() time.Time
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

type SendMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
}

type AddMessageFileInput struct {
	UserID    uint
	MessageID uint
	FileURL   string
	FileName  string
}

type SendMessageResult struct {
	Messages []model.Message `json:"messages"`
}

func NewChatService(
	sessions SessionStore,
	messages MessageStore,
	files MessageFileStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	responder Answerer,
	maxContext int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	return &ChatService{
		sessions:     sessions,
		messages:     messages,
		files:        files,
		publisher:    publisher,
		historyCache: historyCache,
		responder:    responder,
		maxContext:   maxContext,
		now:          time.Now,
	}
}

func (s *ChatService) CreateSession(ctx context.Context, input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Chat"
	}
	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessions.ListByUserID(ctx, userID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.files.DeleteBySessionID(ctx, sessionID); err != nil {
		return err
	}
	if err := s.messages.DeleteBySessionID(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByIDAndUserID(ctx, sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, sessionID); err != nil {
			ctxzap.Warn(ctx, "drop cached history failed", zap.Uint("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

// SendMessage answers content with the session history as context. Both
// messages are queued for persistence only after the answer succeeded.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if _, err := s.ownedSession(ctx, input.UserID, input.SessionID); err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}

	recent, err := s.messages.ListRecentBySessionID(ctx, input.SessionID, s.maxContext)
	if err != nil {
		return nil, err
	}

	answer, err := s.responder.Answer(ctx, content, toTurns(recent))
	if err != nil {
		return nil, err
	}

	userMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: s.now(),
	}
	assistantMessage := model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      model.RoleAssistant,
		Content:   answer,
		CreatedAt: userMessage.CreatedAt.Add(time.Millisecond),
	}

	// Bookkeeping outlives a disconnected client.
	persistCtx, cancel := context.WithTimeout(logger.Detach(ctx), persistTimeout)
	defer cancel()

	s.dropHistory(persistCtx, input.SessionID)
	for _, msg := range []model.Message{userMessage, assistantMessage} {
		if err := s.publisher.Publish(persistCtx, msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMessageEnqueue, err)
		}
	}
	if err := s.sessions.Touch(persistCtx, input.SessionID); err != nil {
		ctxzap.Warn(ctx, "touch session failed", zap.Uint("session_id", input.SessionID), zap.Error(err))
	}

	return &SendMessageResult{Messages: []model.Message{userMessage, assistantMessage}}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.Message, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		if cached, hit, err := s.historyCache.GetHistory(ctx, sessionID); err == nil && hit {
			return trimMessages(cached, limit), nil
		}
	}

	messages, err := s.messages.ListBySessionID(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachFiles(ctx, messages); err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.SetHistory(ctx, sessionID, messages); err != nil {
			ctxzap.Debug(ctx, "fill history cache failed", zap.Error(err))
		}
	}
	return messages, nil
}

// ListMessageFiles returns the files of a message in one of the user's sessions.
func (s *ChatService) ListMessageFiles(ctx context.Context, userID, messageID uint) ([]model.MessageFile, error) {
	if _, err := s.ownedMessage(ctx, userID, messageID); err != nil {
		return nil, err
	}
	return s.files.ListByMessageIDs(ctx, []uint{messageID})
}

func (s *ChatService) AddMessageFile(ctx context.Context, input AddMessageFileInput) (*model.MessageFile, error) {
	fileURL := strings.TrimSpace(input.FileURL)
	parsed, err := url.ParseRequestURI(fileURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: file_url must be an http(s) url", ErrInvalidInput)
	}
	message, err := s.ownedMessage(ctx, input.UserID, input.MessageID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.FileName)
	if name == "" {
		name = path.Base(parsed.Path)
	}
	if name == "" || name == "/" || name == "." {
		name = "attachment"
	}
	if runes := []rune(name); len(runes) > 255 {
		name = string(runes[:255])
	}

	file := &model.MessageFile{
		MessageID: message.ID,
		SessionID: message.SessionID,
		FileURL:   fileURL,
		FileName:  name,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}
	s.dropHistory(ctx, message.SessionID)
	return file, nil
}

func (s *ChatService) DeleteMessageFile(ctx context.Context, userID, fileID uint) error {
	if userID == 0 || fileID == 0 {
		return ErrInvalidInput
	}
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil {
		return ErrFileNotFound
	}
	if _, err := s.ownedSession(ctx, userID, file.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		return err
	}
	s.dropHistory(ctx, file.SessionID)
	return nil
}

// ownedMessage hides messages of other users behind ErrMessageNotFound.
func (s *ChatService) ownedMessage(ctx context.Context, userID, messageID uint) (*model.Message, error) {
	if userID == 0 || messageID == 0 {
		return nil, ErrInvalidInput
	}
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}
	if _, err := s.ownedSession(ctx, userID, message.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return message, nil
}

func (s *ChatService) attachFiles(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]uint, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}
	files, err := s.files.ListByMessageIDs(ctx, ids)
	if err != nil {
		return err
	}
	byMessage := make(map[uint][]model.MessageFile, len(files))
	for _, f := range files {
		byMessage[f.MessageID] = append(byMessage[f.MessageID], f)
	}
	for i := range messages {
		messages[i].Files = byMessage[messages[i].ID]
	}
	return nil
}

func (s *ChatService) dropHistory(ctx context.Context, sessionID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.Invalidate(ctx, sessionID); err != nil {
		ctxzap.Warn(ctx, "invalidate history cache failed", zap.Uint("session_id", sessionID), zap.Error(err))
	}
}

func (s *ChatService) ownedSession(ctx context.Context, userID, sessionID uint) (*model.Session, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessions.GetByIDAndUserID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func toTurns(messages []model.Message) []rag.Turn {
	turns := make([]rag.Turn, 0, len(messages))
	for _, m := range messages {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		turns = append(turns, rag.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
