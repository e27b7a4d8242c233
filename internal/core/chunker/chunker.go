// Package chunker splits plain text into overlapping word windows.
package chunker

import (
	"fmt"
	"strings"

	apperrors "chatbot-engine/internal/common/errors"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Chunk splits text on whitespace runs and emits windows of chunkSize words,
// advancing by chunkSize-overlap. Every word lands in at least one chunk.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", apperrors.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", apperrors.ErrInvalidConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", apperrors.ErrInvalidConfiguration, overlap, chunkSize)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks, nil
}
