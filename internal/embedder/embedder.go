package embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/verdantiq/esgcopilot/provider"
)

// Embedded pairs a chunk with its vector, in original chunk order.
type Embedded struct {
	Chunk  string
	Vector []float32
}

// Embedder partitions chunk lists into fixed-size batches and embeds the
// batches concurrently. Any batch failure aborts the whole operation;
// partial results are never returned.
type Embedder struct {
	provider  provider.EmbeddingProvider
	batchSize int
}

// New returns an Embedder. A non-positive batch size falls back to 20.
func New(p provider.EmbeddingProvider, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Embedder{provider: p, batchSize: batchSize}
}

// EmbedChunks embeds document chunks, preserving input order in the result.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []string) ([]Embedded, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	var batches [][]string
	for start := 0; start < len(chunks); start += e.batchSize {
		end := start + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make([][][]float32, len(batches))
		firstErr error
	)
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()
			vecs, err := e.provider.CreateEmbedding(ctx, batch, provider.InputSearchDocument)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding batch %d/%d: %w", i+1, len(batches), err)
				}
				return
			}
			if len(vecs) == 0 {
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding batch %d/%d: empty result", i+1, len(batches))
				}
				return
			}
			results[i] = vecs
		}(i, batch)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]Embedded, 0, len(chunks))
	for i, batch := range batches {
		for j, chunk := range batch {
			out = append(out, Embedded{Chunk: chunk, Vector: results[i][j]})
		}
	}
	return out, nil
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.provider.CreateEmbedding(ctx, []string{text}, provider.InputSearchQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding query: empty result")
	}
	return vecs[0], nil
}
