package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raglib/docqa/internal/ai"
	"github.com/raglib/docqa/internal/model"
	appErr "github.com/raglib/docqa/internal/pkg/errors"
	"github.com/raglib/docqa/internal/vectorstore"
)

type fakeIndex struct {
	count      int
	results    []model.ScoredChunk
	lastK      int
	lastFilter string
}

func (f *fakeIndex) Add(ctx context.Context, chunks []*model.IndexedChunk) error { return nil }

func (f *fakeIndex) Search(ctx context.Context, embedding []float32, topK int, filename string) ([]model.ScoredChunk, error) {
	f.lastK = topK
	f.lastFilter = filename
	return f.results, nil
}

func (f *fakeIndex) DeleteByFilename(ctx context.Context, filename string) error { return nil }
func (f *fakeIndex) Clear(ctx context.Context) error                             { return nil }
func (f *fakeIndex) Count(ctx context.Context) (int, error)                      { return f.count, nil }

var _ vectorstore.Store = (*fakeIndex)(nil)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func newTestQueryService(index vectorstore.Store, gen ai.IGenerator) *QueryService {
	return NewQueryService(nil, index, fakeEmbedder{}, gen, 4, 0, time.Second)
}

func TestAnswerEmptyQuestion(t *testing.T) {
	svc := newTestQueryService(&fakeIndex{}, &fakeGenerator{})
	_, err := svc.Answer(context.Background(), "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestAnswerEmptyIndex(t *testing.T) {
	svc := newTestQueryService(&fakeIndex{count: 0}, &fakeGenerator{})
	answer, err := svc.Answer(context.Background(), "what is this about?")
	require.NoError(t, err)
	require.Equal(t, answerNoDocuments, answer.Text)
	require.Empty(t, answer.Sources)
}

func TestAnswerNoResults(t *testing.T) {
	svc := newTestQueryService(&fakeIndex{count: 3, results: nil}, &fakeGenerator{})
	answer, err := svc.Answer(context.Background(), "what is this about?")
	require.NoError(t, err)
	require.Equal(t, answerNotFound, answer.Text)
	require.Empty(t, answer.Sources)
}

func TestAnswerWithSources(t *testing.T) {
	index := &fakeIndex{
		count: 3,
		results: []model.ScoredChunk{
			{Chunk: model.Chunk{Filename: "guide.txt", Ordinal: 0, Content: "The capital of France is Paris."}, Similarity: 0.91},
			{Chunk: model.Chunk{Filename: "guide.txt", Ordinal: 2, Content: "France uses the euro."}, Similarity: 0.74},
		},
	}
	gen := &fakeGenerator{answer: "Paris is the capital of France."}
	svc := newTestQueryService(index, gen)

	answer, err := svc.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, "Paris is the capital of France.", answer.Text)
	require.Len(t, answer.Sources, 2)
	require.Equal(t, "guide.txt", answer.Sources[0].Filename)
	require.Equal(t, 0, answer.Sources[0].Ordinal)
	require.Equal(t, 4, index.lastK)
	require.Contains(t, gen.prompt, "The capital of France is Paris.")
	require.Contains(t, gen.prompt, "What is the capital of France?")
}

func TestAnswerGenerationFailure(t *testing.T) {
	index := &fakeIndex{
		count: 1,
		results: []model.ScoredChunk{
			{Chunk: model.Chunk{Filename: "a.txt", Ordinal: 0, Content: "content"}, Similarity: 0.5},
		},
	}
	gen := &fakeGenerator{err: errors.New("model exploded")}
	svc := newTestQueryService(index, gen)

	answer, err := svc.Answer(context.Background(), "question?")
	require.NoError(t, err)
	require.Contains(t, answer.Text, "Error processing query")
	require.Empty(t, answer.Sources)
}

func TestAnswerProviderUnavailable(t *testing.T) {
	index := &fakeIndex{
		count: 1,
		results: []model.ScoredChunk{
			{Chunk: model.Chunk{Filename: "a.txt", Ordinal: 0, Content: "content"}, Similarity: 0.5},
		},
	}
	gen := &fakeGenerator{err: ai.ErrUnavailable}
	svc := newTestQueryService(index, gen)

	_, err := svc.Answer(context.Background(), "question?")
	require.ErrorIs(t, err, ai.ErrUnavailable)
}

func TestFilenameRegex(t *testing.T) {
	require.True(t, filenameRegex.MatchString("what does report.pdf say about revenue?"))
	require.True(t, filenameRegex.MatchString("summarize Meeting Notes.DOCX please"))
	require.False(t, filenameRegex.MatchString("no file mentioned here"))
	require.False(t, filenameRegex.MatchString("open the image.png for me"))

	require.Equal(t, "report.pdf", filenameRegex.FindString("what does report.pdf say?"))
}

func TestFilenameMentioned(t *testing.T) {
	require.True(t, filenameMentioned("what does report.pdf say?", "report.pdf"))
	require.True(t, filenameMentioned("summarize MEETING NOTES.DOCX please", "meeting notes.docx"))

	// a mention of another file must not match a shorter uploaded name
	require.False(t, filenameMentioned("what does report.pdf say?", "port.pdf"))
	require.False(t, filenameMentioned("open subreport.pdf", "report.pdf"))
	require.False(t, filenameMentioned("see report.pdf.bak", "report.pdf"))

	require.True(t, filenameMentioned(`what is in "report.pdf"?`, "report.pdf"))
}

func TestReformulateQuestionTokenBoundary(t *testing.T) {
	// the stripped occurrence must be the whole-token one
	got := reformulateQuestion("compare report.pdf and port.pdf contents", "port.pdf")
	require.Equal(t, "compare report.pdf and contents", got)
}

func TestReformulateQuestion(t *testing.T) {
	got := reformulateQuestion("what does report.pdf say about revenue?", "report.pdf")
	require.Equal(t, "what does say about revenue?", got)

	got = reformulateQuestion(`summarize "notes.txt"`, "notes.txt")
	require.Equal(t, "summarize", got)

	// nothing meaningful left, keep the original
	got = reformulateQuestion("the report.pdf", "report.pdf")
	require.Equal(t, "the report.pdf", got)
}

func TestPreviewText(t *testing.T) {
	short := "short content"
	require.Equal(t, short, previewText(short))

	long := strings.Repeat("x", sourcePreviewChars+50)
	preview := previewText(long)
	require.Len(t, []rune(preview), sourcePreviewChars+3)
	require.True(t, strings.HasSuffix(preview, "..."))
}

func TestBuildContext(t *testing.T) {
	results := []model.ScoredChunk{
		{Chunk: model.Chunk{Filename: "a.txt", Ordinal: 0, Content: "first"}},
		{Chunk: model.Chunk{Filename: "b.txt", Ordinal: 3, Content: "second"}},
	}
	ctx := buildContext(results)
	require.Contains(t, ctx, "[Source: a.txt, chunk 0]\nfirst")
	require.Contains(t, ctx, "[Source: b.txt, chunk 3]\nsecond")
	require.Contains(t, ctx, "\n\n---\n\n")
}
