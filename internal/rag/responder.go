package rag

import (
	"context"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"gopherai-rag/internal/ai"
)

// ChatModel is the language model boundary. Implementations return either an
// ai.FinalAnswer or an ai.ToolRequest.
type ChatModel interface {
	Complete(ctx context.Context, req ai.ChatRequest) (ai.Reply, error)
}

// welcomeQuestion is the question slot of the welcome prompt.
const welcomeQuestion = "Please write the welcome message now."

type Responder struct {
	embedder Embedder
	store    VectorStore
	model    ChatModel
	products ProductFinder
	cfg      Config
	now      func() time.Time
}

// NewResponder wires a responder. products may be nil, in which case no tool
// is declared to the model.
func NewResponder(embedder Embedder, store VectorStore, model ChatModel, products ProductFinder, cfg Config) (*Responder, error) {
	if embedder == nil || store == nil || model == nil {
		return nil, Errorf(ErrConfig, "responder needs an embedder, a vector store and a chat model")
	}
	return &Responder{
		embedder: embedder,
		store:    store,
		model:    model,
		products: products,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}, nil
}

// Answer returns a grounded answer to query. Either the full answer or an
// error is returned, never a partial answer.
func (r *Responder) Answer(ctx context.Context, query string, history []Turn) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", Errorf(ErrValidation, "query is required")
	}

	prompt := Prompt{
		Policy:  SystemPolicy,
		History: CleanHistory(history),
		Query:   query,
	}
	if err := prompt.Validate(); err != nil {
		return "", err
	}

	grounding, err := r.retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	prompt.Grounding = grounding

	return r.complete(ctx, prompt, r.tools())
}

// Welcome composes the greeting message. A zero Now uses the current time.
func (r *Responder) Welcome(ctx context.Context, req WelcomeRequest) (string, error) {
	if req.Now.IsZero() {
		req.Now = r.now()
	}

	grounding, err := r.retrieve(ctx, welcomeQuery)
	if err != nil {
		return "", err
	}

	prompt := Prompt{
		Policy:    SystemPolicy,
		Grounding: grounding,
		Directive: welcomeDirective(req),
		Query:     welcomeQuestion,
	}
	if err := prompt.Validate(); err != nil {
		return "", err
	}
	return r.complete(ctx, prompt, nil)
}

func (r *Responder) retrieve(ctx context.Context, query string) (string, error) {
	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.EmbedTimeout)
	vec, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return "", ensureKind(ErrEmbeddingProvider, "embed query", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	matches, err := r.store.QueryTopK(queryCtx, vec, r.cfg.TopK)
	if err != nil {
		return "", ensureKind(ErrVectorStore, "query top-k", err)
	}
	ctxzap.Debug(ctx, "retrieved chunks", zap.Int("matches", len(matches)), zap.Int("top_k", r.cfg.TopK))
	return Grounding(matches), nil
}

func (r *Responder) tools() []ai.Tool {
	if r.products == nil {
		return nil
	}
	return []ai.Tool{productTool()}
}

func (r *Responder) complete(ctx context.Context, prompt Prompt, tools []ai.Tool) (string, error) {
	messages := prompt.Messages()
	reply, err := r.invoke(ctx, ai.ChatRequest{
		Messages:    messages,
		Tools:       tools,
		Temperature: r.cfg.Temperature,
		TopP:        r.cfg.TopP,
	})
	if err != nil {
		return "", err
	}

	switch rep := reply.(type) {
	case ai.FinalAnswer:
		return finalText(rep.Text)
	case ai.ToolRequest:
		return r.followUp(ctx, messages, tools, rep)
	default:
		return "", Errorf(ErrModelProvider, "unexpected model reply %T", reply)
	}
}

// followUp runs the single allowed tool round. Every call is validated before
// any lookup, and the second reply is final even if it asks for more tools.
func (r *Responder) followUp(ctx context.Context, messages []ai.Message, tools []ai.Tool, req ai.ToolRequest) (string, error) {
	if len(tools) == 0 || r.products == nil {
		return "", Errorf(ErrToolArgument, "model requested a tool but none was offered")
	}
	if len(req.Calls) == 0 {
		return "", Errorf(ErrModelProvider, "tool request without calls")
	}

	args := make([]productToolArgs, len(req.Calls))
	for i, call := range req.Calls {
		a, err := parseToolCall(call)
		if err != nil {
			return "", err
		}
		args[i] = a
	}

	messages = append(messages, ai.Message{
		Role:      ai.RoleAssistant,
		Content:   req.Text,
		ToolCalls: req.Calls,
	})
	for i, call := range req.Calls {
		result, err := r.runProductTool(ctx, args[i])
		if err != nil {
			return "", err
		}
		messages = append(messages, ai.Message{
			Role:       ai.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	reply, err := r.invoke(ctx, ai.ChatRequest{
		Messages:    messages,
		Tools:       tools,
		ToolChoice:  ai.ToolChoiceNone,
		Temperature: r.cfg.Temperature,
		TopP:        r.cfg.TopP,
	})
	if err != nil {
		return "", err
	}

	switch rep := reply.(type) {
	case ai.FinalAnswer:
		return finalText(rep.Text)
	case ai.ToolRequest:
		ctxzap.Warn(ctx, "ignoring nested tool request", zap.Int("calls", len(rep.Calls)))
		return finalText(rep.Text)
	default:
		return "", Errorf(ErrModelProvider, "unexpected model reply %T", reply)
	}
}

func (r *Responder) runProductTool(ctx context.Context, args productToolArgs) (string, error) {
	toolCtx, cancel := context.WithTimeout(ctx, r.cfg.ToolTimeout)
	defer cancel()

	products, err := r.products.FindProducts(toolCtx, args.ProductName, args.SearchType)
	if err != nil {
		return "", ensureKind(ErrToolExecution, "find products", err)
	}
	ctxzap.Debug(ctx, "product tool executed",
		zap.String("product_name", args.ProductName),
		zap.String("search_type", string(args.SearchType)),
		zap.Int("matches", len(products)),
	)
	return toolResult(args, products)
}

func (r *Responder) invoke(ctx context.Context, req ai.ChatRequest) (ai.Reply, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.ModelTimeout)
	defer cancel()

	reply, err := r.model.Complete(callCtx, req)
	if err != nil {
		return nil, ensureKind(ErrModelProvider, "chat completion", err)
	}
	if reply == nil {
		return nil, Errorf(ErrModelProvider, "model returned no reply")
	}
	return reply, nil
}

func finalText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", Errorf(ErrModelProvider, "model returned neither a tool call nor text")
	}
	return text, nil
}
