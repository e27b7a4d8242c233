package genai

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	apperrors "chatbot-engine/internal/common/errors"
)

type embedFunc func(ctx context.Context, texts []string) ([][]float64, error)

// embedInBatches splits texts into sub-batches, embeds them concurrently and
// writes each result back at its input offset. Any failure fails the call.
func embedInBatches(ctx context.Context, texts []string, opts BatchOptions, embed embedFunc) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	opts = opts.withDefaults()

	out := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < len(texts); start += opts.Size {
		start := start
		end := start + opts.Size
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			vectors, err := embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return fmt.Errorf("%w: expected %d embeddings, got %d",
					apperrors.ErrEmbeddingProvider, end-start, len(vectors))
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
