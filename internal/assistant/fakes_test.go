package assistant

import (
	"context"
	"strings"

	"github.com/verdantiq/esgcopilot/internal/embedder"
	"github.com/verdantiq/esgcopilot/internal/store"
	"github.com/verdantiq/esgcopilot/provider"
)

type fakeHistory struct {
	turns    map[string][]provider.Turn
	readErr  error
	writeErr error
	appends  []provider.Turn
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{turns: map[string][]provider.Turn{}}
}

func (f *fakeHistory) Append(_ context.Context, key string, turn provider.Turn) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.turns[key] = append(f.turns[key], turn)
	f.appends = append(f.appends, turn)
	return nil
}

func (f *fakeHistory) Read(_ context.Context, key string) ([]provider.Turn, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.turns[key], nil
}

type fakeDocs struct {
	files        []store.TaskFile
	filesErr     error
	existing     map[string]bool
	inserted     []store.DocumentChunkRecord
	insertErr    error
	session      []store.SessionChunk
	sessionErr   error
	matches      []store.SearchResult
	searchErr    error
	searchCalls  int
	searchLimit  int
	sessionCalls int
}

func (f *fakeDocs) ListTaskFiles(_ context.Context, _ string) ([]store.TaskFile, error) {
	return f.files, f.filesErr
}

func (f *fakeDocs) HasDocumentChunks(_ context.Context, _, _, filePath string) (bool, error) {
	return f.existing[filePath], nil
}

func (f *fakeDocs) InsertDocumentChunks(_ context.Context, records []store.DocumentChunkRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeDocs) ListSessionChunks(_ context.Context, _, _ string) ([]store.SessionChunk, error) {
	f.sessionCalls++
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeDocs) SearchDocuments(_ context.Context, _ []float32, limit int) ([]store.SearchResult, error) {
	f.searchCalls++
	f.searchLimit = limit
	return f.matches, f.searchErr
}

type fakeCompleter struct {
	reply    string
	err      error
	requests []provider.ChatRequest
}

func (f *fakeCompleter) Chat(_ context.Context, req provider.ChatRequest) (provider.ChatResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return provider.ChatResult{}, f.err
	}
	return provider.ChatResult{Text: f.reply}, nil
}

type fakeEmbedder struct {
	chunkErr   error
	queryErr   error
	queryCalls int
	chunkCalls [][]string
}

func (f *fakeEmbedder) EmbedChunks(_ context.Context, chunks []string) ([]embedder.Embedded, error) {
	f.chunkCalls = append(f.chunkCalls, chunks)
	if f.chunkErr != nil {
		return nil, f.chunkErr
	}
	out := make([]embedder.Embedded, len(chunks))
	for i, c := range chunks {
		out[i] = embedder.Embedded{Chunk: c, Vector: []float32{float32(i) + 0.5}}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{0.1, 0.2}, nil
}

type fakeExtractor struct {
	texts map[string]string
	err   error
	calls []string
}

func (f *fakeExtractor) ExtractText(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	return f.texts[url], nil
}

func systemMessages(turns []provider.Turn) []string {
	var out []string
	for _, t := range turns {
		if t.Role == provider.RoleSystem {
			out = append(out, t.Message)
		}
	}
	return out
}

func containsMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
