package provider

import "context"

// Conversation roles as stored in history and carried through prompts.
// Retrieved documents ride along as System turns and are never persisted.
const (
	RoleUser    = "User"
	RoleChatbot = "Chatbot"
	RoleSystem  = "System"
)

// Turn is a single conversation entry.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// ChatRequest is the assembled prompt for one completion call: the fixed
// preamble, the ordered prior turns (including retrieved documents as
// System turns) and the new user message.
type ChatRequest struct {
	Message  string
	History  []Turn
	Preamble string
}

// Citation is structured citation metadata returned by the completion API.
type Citation struct {
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Text        string   `json:"text"`
	DocumentIDs []string `json:"document_ids"`
}

// ChatResult carries the generated text plus any citations the API provided.
type ChatResult struct {
	Text      string
	Citations []Citation
}

// CompletionProvider issues one synchronous chat-completion call.
type CompletionProvider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// Embedding input types understood by the embedding API.
const (
	InputSearchDocument = "search_document"
	InputSearchQuery    = "search_query"
)

// EmbeddingProvider turns texts into fixed-length vectors.
type EmbeddingProvider interface {
	CreateEmbedding(ctx context.Context, texts []string, inputType string) ([][]float32, error)
}
