package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/raglib/docqa/internal/ai"
	"github.com/raglib/docqa/internal/model"
	appErr "github.com/raglib/docqa/internal/pkg/errors"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/vectorstore"
)

const (
	taskTypeQuery = "RETRIEVAL_QUERY"

	answerNoDocuments = "No documents indexed yet. Please upload a document first."
	answerNotFound    = "I cannot find this information in the provided documents."

	sourcePreviewChars = 200
)

const answerPromptTemplate = `You are a helpful assistant answering questions based on provided documents.
Use ONLY the following context to answer the question. If the answer is not in the context, say "I cannot find this information in the provided documents."

Context:
%s

Question: %s

Answer:`

// filenameRegex detects tokens with a document extension, e.g. "report.pdf".
// It is only a gate; the actual match runs against the uploaded filenames so
// names with spaces resolve too.
var filenameRegex = regexp.MustCompile(`(?i)[\w()\-]+\.(?:pdf|txt|md|docx|xlsx)\b`)

type QueryService struct {
	docs          *repo.DocumentRepo
	index         vectorstore.Store
	embedder      ai.IEmbedder
	generator     ai.IGenerator
	topK          int
	maxInputChars int
	timeout       time.Duration
}

func NewQueryService(
	docs *repo.DocumentRepo,
	index vectorstore.Store,
	embedder ai.IEmbedder,
	generator ai.IGenerator,
	topK int,
	maxInputChars int,
	timeout time.Duration,
) *QueryService {
	return &QueryService{
		docs:          docs,
		index:         index,
		embedder:      embedder,
		generator:     generator,
		topK:          topK,
		maxInputChars: maxInputChars,
		timeout:       timeout,
	}
}

// Answer runs the retrieval pipeline for one question: resolve an optional
// filename reference, embed the (possibly reformulated) question, fetch the
// most similar chunks, and prompt the model with the assembled context.
func (s *QueryService) Answer(ctx context.Context, question string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	indexed, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	if indexed == 0 {
		return &model.Answer{Text: answerNoDocuments, Sources: []model.SourceRef{}}, nil
	}

	filter, searchQuery := s.resolveFilenameFilter(ctx, question)
	if filter != nil {
		logger.Debug("query restricted to document",
			zap.String("filename", filter.Filename),
			zap.String("reformulated", searchQuery),
		)
	}

	embedding, err := s.embedQuery(ctx, searchQuery)
	if err != nil {
		logger.Error("failed to embed question", zap.Error(err))
		return nil, err
	}

	topK := s.topK
	filterName := ""
	if filter != nil {
		filterName = filter.Filename
		if filter.ChunkCount > 0 && topK > filter.ChunkCount {
			topK = filter.ChunkCount
		}
	}
	results, err := s.index.Search(ctx, embedding, topK, filterName)
	if err != nil {
		logger.Error("similarity search failed", zap.Error(err))
		return nil, err
	}
	if len(results) == 0 {
		return &model.Answer{Text: answerNotFound, Sources: []model.SourceRef{}}, nil
	}

	promptContext := buildContext(results)
	if s.maxInputChars > 0 {
		promptContext = truncateRunes(promptContext, s.maxInputChars)
	}
	prompt := fmt.Sprintf(answerPromptTemplate, promptContext, question)
	answer, err := s.generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		logger.Error("failed to generate answer", zap.Error(err))
		return &model.Answer{
			Text:    "Error processing query: the language model did not return an answer.",
			Sources: []model.SourceRef{},
		}, nil
	}
	return &model.Answer{
		Text:    answer,
		Sources: buildSources(results),
	}, nil
}

type filenameFilter struct {
	Filename   string
	ChunkCount int
}

// resolveFilenameFilter looks for a filename mentioned in the question and
// matches it against the uploaded documents. When found, the returned query
// has the filename reference stripped so it embeds as a clean question.
func (s *QueryService) resolveFilenameFilter(ctx context.Context, question string) (*filenameFilter, string) {
	if !filenameRegex.MatchString(question) {
		return nil, question
	}
	docs, err := s.docs.List(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("failed to list documents for filename match", zap.Error(err))
		return nil, question
	}
	var match *filenameFilter
	for _, doc := range docs {
		if !filenameMentioned(question, doc.Filename) {
			continue
		}
		// prefer the longest filename when several are mentioned
		if match == nil || len(doc.Filename) > len(match.Filename) {
			match = &filenameFilter{
				Filename:   doc.Filename,
				ChunkCount: doc.ChunkCount,
			}
		}
	}
	if match == nil {
		return nil, question
	}
	return match, reformulateQuestion(question, match.Filename)
}

// filenameMentioned reports whether the question contains filename as a
// whole token. Plain containment is not enough: "report.pdf" in a question
// must not match an uploaded "port.pdf".
func filenameMentioned(question, filename string) bool {
	return filenameIndex(question, filename) >= 0
}

// filenameIndex returns the byte offset of the first token-boundary
// occurrence of filename in question, case-insensitively, or -1.
func filenameIndex(question, filename string) int {
	lowerQ := strings.ToLower(question)
	lowerF := strings.ToLower(filename)
	if lowerF == "" {
		return -1
	}
	for start := 0; ; {
		idx := strings.Index(lowerQ[start:], lowerF)
		if idx < 0 {
			return -1
		}
		idx += start
		if !tokenChar(runeBefore(lowerQ, idx)) && !tokenChar(runeAfter(lowerQ, idx+len(lowerF))) {
			return idx
		}
		start = idx + 1
	}
}

func tokenChar(r rune) bool {
	if r == 0 {
		return false
	}
	return r == '_' || r == '-' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func runeBefore(s string, idx int) rune {
	if idx <= 0 {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return r
}

func runeAfter(s string, idx int) rune {
	if idx >= len(s) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return r
}

// reformulateQuestion strips the filename reference (and its wrapping
// quotes) from the question. Falls back to the original question when
// nothing useful remains.
func reformulateQuestion(question, mention string) string {
	idx := filenameIndex(question, mention)
	if idx < 0 {
		return question
	}
	stripped := question[:idx] + question[idx+len(mention):]
	stripped = strings.NewReplacer(`"`, " ", "'", " ", "`", " ").Replace(stripped)
	stripped = strings.Join(strings.Fields(stripped), " ")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" || isOnlyFillerWords(stripped) {
		return question
	}
	return stripped
}

var fillerWords = map[string]struct{}{
	"in": {}, "on": {}, "of": {}, "the": {}, "a": {}, "an": {},
	"from": {}, "according": {}, "to": {}, "file": {}, "document": {},
}

func isOnlyFillerWords(text string) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;")
		if word == "" {
			continue
		}
		if _, ok := fillerWords[word]; !ok {
			return false
		}
	}
	return true
}

func buildContext(results []model.ScoredChunk) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		parts = append(parts, fmt.Sprintf("[Source: %s, chunk %d]\n%s",
			result.Chunk.Filename, result.Chunk.Ordinal, result.Chunk.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func buildSources(results []model.ScoredChunk) []model.SourceRef {
	sources := make([]model.SourceRef, 0, len(results))
	for _, result := range results {
		sources = append(sources, model.SourceRef{
			Filename:   result.Chunk.Filename,
			Ordinal:    result.Chunk.Ordinal,
			Preview:    previewText(result.Chunk.Content),
			Similarity: result.Similarity,
		})
	}
	return sources
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func previewText(content string) string {
	runes := []rune(content)
	if len(runes) <= sourcePreviewChars {
		return content
	}
	return string(runes[:sourcePreviewChars]) + "..."
}

func (s *QueryService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, query, taskTypeQuery)
}

func (s *QueryService) generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, prompt)
}
