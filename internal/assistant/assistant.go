package assistant

import (
	"context"
	"errors"
	"log"

	"github.com/verdantiq/esgcopilot/internal/chunker"
	"github.com/verdantiq/esgcopilot/internal/embedder"
	"github.com/verdantiq/esgcopilot/internal/history"
	"github.com/verdantiq/esgcopilot/internal/store"
	"github.com/verdantiq/esgcopilot/provider"
)

// Sentinel errors the HTTP layer maps to client-facing statuses.
var (
	ErrMissingMessage = errors.New("message is required")
	ErrNoFiles        = errors.New("no files attached to this task")
	ErrNoChunks       = errors.New("no document content available for this session")
)

// DocumentStore is the slice of the relational store the assistant needs.
type DocumentStore interface {
	ListTaskFiles(ctx context.Context, taskID string) ([]store.TaskFile, error)
	HasDocumentChunks(ctx context.Context, sessionID, userID, filePath string) (bool, error)
	InsertDocumentChunks(ctx context.Context, records []store.DocumentChunkRecord) error
	ListSessionChunks(ctx context.Context, sessionID, userID string) ([]store.SessionChunk, error)
	SearchDocuments(ctx context.Context, vector []float32, limit int) ([]store.SearchResult, error)
}

// EmbeddingService embeds document chunks and search queries.
type EmbeddingService interface {
	EmbedChunks(ctx context.Context, chunks []string) ([]embedder.Embedded, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextExtractor pulls plain text out of an uploaded file by URL.
type TextExtractor interface {
	ExtractText(ctx context.Context, url string) (string, error)
}

// Assistant composes the retrieval-augmented chat flow and the policy
// autofill pipeline. All collaborators are injected; the assistant itself
// holds no cross-request state.
type Assistant struct {
	history   history.Store
	docs      DocumentStore
	completer provider.CompletionProvider
	embedder  EmbeddingService
	extractor TextExtractor
	chunker   *chunker.Chunker
	topK      int
	logger    *log.Logger
}

// Config carries the assistant's retrieval knobs.
type Config struct {
	SearchTopK int
}

// New wires an Assistant from its collaborators.
func New(hist history.Store, docs DocumentStore, completer provider.CompletionProvider,
	emb EmbeddingService, ext TextExtractor, ch *chunker.Chunker, cfg Config, logger *log.Logger) *Assistant {
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = 10
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ASSISTANT] ", log.LstdFlags)
	}
	return &Assistant{
		history:   hist,
		docs:      docs,
		completer: completer,
		embedder:  emb,
		extractor: ext,
		chunker:   ch,
		topK:      cfg.SearchTopK,
		logger:    logger,
	}
}
