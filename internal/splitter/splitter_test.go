package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/raglib/docqa/internal/pkg/errors"
)

func TestSplitEmptyContent(t *testing.T) {
	sp := New(1000, 200)
	_, err := sp.Split("empty.txt", "   \n\t  ")
	require.ErrorIs(t, err, appErr.ErrEmptyDocument)
}

func TestSplitSmallContent(t *testing.T) {
	sp := New(1000, 200)
	chunks, err := sp.Split("small.txt", "hello world")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "hello world", chunks[0].Content)
	require.Equal(t, 0, chunks[0].Ordinal)
	require.Equal(t, 1, chunks[0].TotalChunks)
	require.Equal(t, "small.txt", chunks[0].Filename)
}

func TestSplitOrdinalsContiguous(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	sp := New(500, 100)
	chunks, err := sp.Split("long.txt", sb.String())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Ordinal)
		require.Equal(t, len(chunks), chunk.TotalChunks)
		require.Equal(t, "long.txt", chunk.Filename)
		require.NotEmpty(t, chunk.Content)
		require.Equal(t, len(chunk.Content), chunk.CharLength)
	}
}

func TestSplitParagraphBoundaries(t *testing.T) {
	content := strings.Repeat("First paragraph sentence. ", 10) +
		"\n\n" +
		strings.Repeat("Second paragraph sentence. ", 10)
	sp := New(300, 50)
	chunks, err := sp.Split("para.txt", content)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		require.NotEqual(t, "", strings.TrimSpace(chunk.Content))
	}
}
