package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verdantiq/esgcopilot/internal/history"
	"github.com/verdantiq/esgcopilot/provider"
)

const chatPreamble = `You are an ESG and CSRD compliance assistant for corporate sustainability teams. ` +
	`You help users understand and draft disclosure content under the European Sustainability Reporting Standards (ESRS). ` +
	`Ground your answers in the provided policy documents whenever they are relevant, and say so when they are not. ` +
	`Keep answers concise and suitable for inclusion in a sustainability report.`

// memoryTypeLabel describes the conversation memory backing, echoed in the
// chat response for the client UI.
const memoryTypeLabel = "Redis-backed conversation memory"

// uploadedDocPrefix marks prompt documents that come from the user's own
// uploads rather than from similarity search.
const uploadedDocPrefix = "Previously uploaded document: "

// citationReminder is appended to replies when the user asks for citations
// or source paragraphs.
const citationReminder = "\n\nNote: paragraph references point into the uploaded policy excerpts above; " +
	"please verify them against the source document before publishing."

var citationTriggers = []string{"write the citation", "show the paragraphs"}

// ChatInput is one user message plus the identity fields that key the
// conversation thread.
type ChatInput struct {
	Message   string
	TaskID    string
	UserID    string
	SessionID string
	Company   string
	FirstName string
	LastName  string
}

// ChatOutput is the assistant's reply together with the serialized prompt
// documents and the original question.
type ChatOutput struct {
	Response        string
	SourceDocuments string
	Question        string
	MemoryType      string
}

// Chat runs one turn of the interactive flow: reconstruct history, gather
// prompt documents, complete, and persist the new user/assistant turns.
// History failures degrade to an empty or unpersisted history; document
// lookup, embedding and completion failures abort the request.
func (a *Assistant) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return ChatOutput{}, ErrMissingMessage
	}
	key := history.ConversationKey(in.Company, in.FirstName, in.LastName, in.TaskID)

	prior, err := a.history.Read(ctx, key)
	if err != nil {
		a.logger.Printf("history read failed, continuing without memory: %v", err)
		prior = nil
	}

	working := make([]provider.Turn, 0, len(prior)+2)
	working = append(working, prior...)
	working = append(working, provider.Turn{Role: provider.RoleUser, Message: in.Message})

	sources := []provider.Turn{}
	uploaded, err := a.docs.ListSessionChunks(ctx, in.SessionID, in.UserID)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("listing uploaded documents: %w", err)
	}
	for _, chunk := range uploaded {
		sources = append(sources, provider.Turn{Role: provider.RoleSystem, Message: uploadedDocPrefix + chunk.Content})
	}

	queryVec, err := a.embedder.EmbedQuery(ctx, in.Message)
	if err != nil {
		return ChatOutput{}, err
	}
	matches, err := a.docs.SearchDocuments(ctx, queryVec, a.topK)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("similarity search: %w", err)
	}
	for _, m := range matches {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		sources = append(sources, provider.Turn{Role: provider.RoleSystem, Message: m.Content})
	}

	promptHistory := make([]provider.Turn, 0, len(prior)+len(sources))
	promptHistory = append(promptHistory, prior...)
	promptHistory = append(promptHistory, sources...)

	result, err := a.completer.Chat(ctx, provider.ChatRequest{
		Message:  in.Message,
		History:  promptHistory,
		Preamble: chatPreamble,
	})
	if err != nil {
		return ChatOutput{}, err
	}

	reply := result.Text
	if hasCitationTrigger(in.Message) {
		reply += citationReminder
	}
	working = append(working, provider.Turn{Role: provider.RoleChatbot, Message: reply})

	// Persist only the new user and assistant turns; System turns never
	// reach the history store. Append failures must not block the reply.
	persistable := filterRoles(working, provider.RoleUser, provider.RoleChatbot)
	start := len(persistable) - 2
	if start < 0 {
		start = 0
	}
	for _, turn := range persistable[start:] {
		if err := a.history.Append(ctx, key, turn); err != nil {
			a.logger.Printf("history append failed for %q turn: %v", turn.Role, err)
		}
	}

	srcJSON, err := json.Marshal(sources)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("serializing source documents: %w", err)
	}
	return ChatOutput{
		Response:        reply,
		SourceDocuments: string(srcJSON),
		Question:        in.Message,
		MemoryType:      memoryTypeLabel,
	}, nil
}

func hasCitationTrigger(message string) bool {
	lower := strings.ToLower(message)
	for _, trigger := range citationTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

func filterRoles(turns []provider.Turn, roles ...string) []provider.Turn {
	var out []provider.Turn
	for _, turn := range turns {
		for _, role := range roles {
			if turn.Role == role {
				out = append(out, turn)
				break
			}
		}
	}
	return out
}
