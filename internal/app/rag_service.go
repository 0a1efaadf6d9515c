package app

import (
	"context"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"gopherai-rag/internal/model"
	"gopherai-rag/internal/rag"
)

type Ingestor interface {
	IngestFile(ctx context.Context, data []byte) (*rag.IngestResult, error)
	EmbedText(ctx context.Context, text string) (rag.ChunkID, error)
}

type Responder interface {
	Answer(ctx context.Context, query string, history []rag.Turn) (string, error)
	Welcome(ctx context.Context, req rag.WelcomeRequest) (string, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// RAGService guards the retrieval core with the authenticated principal.
type RAGService struct {
	ingestor  Ingestor
	responder Responder
	users     UserLookup
	now       func() time.Time
}

func NewRAGService(ingestor Ingestor, responder Responder, users UserLookup) *RAGService {
	return &RAGService{
		ingestor:  ingestor,
		responder: responder,
		users:     users,
		now:       time.Now,
	}
}

type EmbedResult struct {
	DocumentID rag.ChunkID `json:"document_id"`
	Stored     bool        `json:"stored"`
}

func (s *RAGService) Ingest(ctx context.Context, userID uint, data []byte) (*rag.IngestResult, error) {
	if userID == 0 {
		return nil, rag.Errorf(rag.ErrUnauthorized, "ingest requires a signed-in user")
	}
	res, err := s.ingestor.IngestFile(ctx, data)
	if err != nil {
		return nil, err
	}
	ctxzap.Info(ctx, "document ingested", zap.Uint("user_id", userID), zap.Int("chunks_stored", res.ChunksStored))
	return res, nil
}

func (s *RAGService) EmbedText(ctx context.Context, userID uint, text string) (*EmbedResult, error) {
	if userID == 0 {
		return nil, rag.Errorf(rag.ErrUnauthorized, "embed requires a signed-in user")
	}
	id, err := s.ingestor.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return &EmbedResult{DocumentID: id, Stored: true}, nil
}

func (s *RAGService) Answer(ctx context.Context, userID uint, query string, history []rag.Turn) (string, error) {
	if userID == 0 {
		return "", rag.Errorf(rag.ErrUnauthorized, "answer requires a signed-in user")
	}
	return s.responder.Answer(ctx, query, history)
}

// Welcome greets the user by profile name when one is known.
func (s *RAGService) Welcome(ctx context.Context, userID uint) (string, error) {
	if userID == 0 {
		return "", rag.Errorf(rag.ErrUnauthorized, "welcome requires a signed-in user")
	}
	req := rag.WelcomeRequest{Now: s.now()}
	if s.users != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			ctxzap.Warn(ctx, "welcome without name", zap.Error(err))
		} else if user != nil {
			req.Name = user.DisplayName()
		}
	}
	return s.responder.Welcome(ctx, req)
}
