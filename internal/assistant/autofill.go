package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verdantiq/esgcopilot/internal/store"
	"github.com/verdantiq/esgcopilot/provider"
)

const autofillPreamble = `You are an ESG disclosure writer. You draft policy disclosure text under the ` +
	`European Sustainability Reporting Standards (ESRS) from excerpts of a company's own policy documents.`

// autofillInstruction covers the six minimum disclosure requirements for
// policies under ESRS 2 MDR-P.
const autofillInstruction = `Summarize the provided policy document excerpts into a draft policy disclosure. ` +
	`Address each of the following six points, using only information present in the excerpts and noting explicitly when a point is not covered:
1. A description of the key contents of the policy.
2. The scope of the policy, including activities, value chain and geographies covered.
3. The most senior level in the organisation accountable for implementing the policy.
4. Any third-party standards or initiatives the policy references.
5. How the interests of key stakeholders were considered in setting the policy.
6. Whether and how the policy is made available to potentially affected stakeholders.
Write the result as continuous report-ready prose.`

// Ingestion outcomes per file.
const (
	FileIngested = "ingested"
	FileSkipped  = "skipped"
	FileEmpty    = "empty"
)

// FileStatus reports what happened to one attached file during autofill.
type FileStatus struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// AutofillResult carries the drafted disclosure value. Persisting it to the
// task record is the caller's decision; the draft stays editable.
type AutofillResult struct {
	Value          string       `json:"value"`
	Files          []FileStatus `json:"files"`
	ChunksIngested int          `json:"chunks_ingested"`
}

// Autofill runs the batch pipeline for one task: ingest every attached file
// that is not already in the vector store (extract, chunk, embed, store),
// then summarize all stored chunks for the session into a disclosure draft.
// Already-stored chunks from earlier files are kept when a later step fails.
func (a *Assistant) Autofill(ctx context.Context, taskID, sessionID, userID string) (AutofillResult, error) {
	files, err := a.docs.ListTaskFiles(ctx, taskID)
	if err != nil {
		return AutofillResult{}, fmt.Errorf("listing task files: %w", err)
	}
	if len(files) == 0 {
		return AutofillResult{}, ErrNoFiles
	}

	result := AutofillResult{}
	for _, file := range files {
		exists, err := a.docs.HasDocumentChunks(ctx, sessionID, userID, file.FilePath)
		if err != nil {
			return result, fmt.Errorf("checking existing chunks for %s: %w", file.FilePath, err)
		}
		if exists {
			result.Files = append(result.Files, FileStatus{Path: file.FilePath, Status: FileSkipped})
			continue
		}

		text, err := a.extractor.ExtractText(ctx, file.FileURL)
		if err != nil {
			return result, fmt.Errorf("extracting text from %s: %w", file.FilePath, err)
		}
		if strings.TrimSpace(text) == "" {
			a.logger.Printf("no text extracted from %s, skipping", file.FilePath)
			result.Files = append(result.Files, FileStatus{Path: file.FilePath, Status: FileEmpty})
			continue
		}

		parts := a.chunker.Split(text)
		embedded, err := a.embedder.EmbedChunks(ctx, parts)
		if err != nil {
			return result, fmt.Errorf("embedding %s: %w", file.FilePath, err)
		}

		records := make([]store.DocumentChunkRecord, len(embedded))
		for i, emb := range embedded {
			records[i] = store.DocumentChunkRecord{
				ID:         uuid.NewString(),
				SessionID:  sessionID,
				UserID:     userID,
				FilePath:   file.FilePath,
				ChunkIndex: i,
				ChunkTotal: len(embedded),
				Content:    emb.Chunk,
				Vector:     emb.Vector,
				Metadata: map[string]interface{}{
					"file_path":   file.FilePath,
					"chunk_index": i,
					"chunk_total": len(embedded),
				},
			}
		}
		if err := a.docs.InsertDocumentChunks(ctx, records); err != nil {
			return result, fmt.Errorf("storing chunks for %s: %w", file.FilePath, err)
		}
		result.Files = append(result.Files, FileStatus{Path: file.FilePath, Status: FileIngested})
		result.ChunksIngested += len(records)
	}

	chunks, err := a.docs.ListSessionChunks(ctx, sessionID, userID)
	if err != nil {
		return result, fmt.Errorf("fetching session chunks: %w", err)
	}
	if len(chunks) == 0 {
		return result, ErrNoChunks
	}

	docTurns := make([]provider.Turn, len(chunks))
	for i, chunk := range chunks {
		docTurns[i] = provider.Turn{Role: provider.RoleSystem, Message: chunk.Content}
	}
	completion, err := a.completer.Chat(ctx, provider.ChatRequest{
		Message:  autofillInstruction,
		History:  docTurns,
		Preamble: autofillPreamble,
	})
	if err != nil {
		return result, err
	}
	result.Value = completion.Text
	return result, nil
}
