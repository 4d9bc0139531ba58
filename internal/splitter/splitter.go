package splitter

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/raglib/docqa/internal/model"
	appErr "github.com/raglib/docqa/internal/pkg/errors"
)

// Splitter cuts extracted document text into overlapping chunks with
// contiguous per-file ordinals.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (s *Splitter) Split(filename, content string) ([]model.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, appErr.ErrEmptyDocument
	}
	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
	)
	parts, err := sp.SplitText(content)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{
			Filename:   filename,
			Ordinal:    len(chunks),
			Content:    part,
			CharLength: len(part),
		})
	}
	if len(chunks) == 0 {
		return nil, appErr.ErrEmptyDocument
	}
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks, nil
}
