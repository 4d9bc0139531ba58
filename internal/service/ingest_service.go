package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/raglib/docqa/internal/ai"
	"github.com/raglib/docqa/internal/filestore"
	"github.com/raglib/docqa/internal/model"
	"github.com/raglib/docqa/internal/parser"
	appErr "github.com/raglib/docqa/internal/pkg/errors"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/splitter"
	"github.com/raglib/docqa/internal/vectorstore"
)

const taskTypeDocument = "RETRIEVAL_DOCUMENT"

type IngestService struct {
	docs     *repo.DocumentRepo
	files    filestore.Store
	index    vectorstore.Store
	embedder ai.IEmbedder
	splitter *splitter.Splitter
	timeout  time.Duration
}

func NewIngestService(
	docs *repo.DocumentRepo,
	files filestore.Store,
	index vectorstore.Store,
	embedder ai.IEmbedder,
	sp *splitter.Splitter,
	timeout time.Duration,
) *IngestService {
	return &IngestService{
		docs:     docs,
		files:    files,
		index:    index,
		embedder: embedder,
		splitter: sp,
		timeout:  timeout,
	}
}

// Ingest stores the uploaded file, extracts and chunks its text, embeds
// every chunk and adds them to the vector index. Re-uploading a filename
// replaces its previous chunks.
func (s *IngestService) Ingest(ctx context.Context, filename string, data []byte) (*model.Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		return nil, appErr.ErrInvalid
	}
	if !parser.IsSupported(filename) {
		return nil, appErr.ErrUnsupportedFile
	}
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename), zap.Int("size", len(data)))

	if err := s.files.Save(ctx, filename, newByteFile(data), int64(len(data))); err != nil {
		logger.Error("failed to save uploaded file", zap.Error(err))
		return nil, err
	}

	hash := sha256.Sum256(data)
	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:          newDocumentID(),
		Filename:    filename,
		SizeBytes:   int64(len(data)),
		ContentHash: hex.EncodeToString(hash[:]),
		Status:      model.DocumentStatusIndexing,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if !appErr.IsConflict(err) {
			return nil, err
		}
		// Same filename uploaded again: drop the old chunks and reindex.
		// The row keeps its identity, only content fields change.
		existing, err := s.docs.GetByFilename(ctx, filename)
		if err != nil {
			return nil, err
		}
		doc.ID = existing.ID
		doc.Ctime = existing.Ctime
		if err := s.index.DeleteByFilename(ctx, filename); err != nil {
			logger.Warn("failed to drop stale chunks before reindex", zap.Error(err))
		}
		doc.Status = model.DocumentStatusIndexing
		if err := s.docs.Update(ctx, doc); err != nil {
			return nil, err
		}
	}

	count, err := s.runPipeline(ctx, filename, data)
	if err != nil {
		if statusErr := s.docs.UpdateStatus(ctx, filename, model.DocumentStatusFailed, 0, time.Now().UnixMilli()); statusErr != nil {
			logger.Warn("failed to mark document failed", zap.Error(statusErr))
		}
		return nil, err
	}
	doc.ChunkCount = count
	doc.Status = model.DocumentStatusReady
	if err := s.docs.UpdateStatus(ctx, filename, model.DocumentStatusReady, count, time.Now().UnixMilli()); err != nil {
		return nil, err
	}
	logger.Info("document indexed", zap.Int("chunks", count))
	return doc, nil
}

// Reingest rebuilds the index entries of an already stored document from
// the file store copy.
func (s *IngestService) Reingest(ctx context.Context, filename string) error {
	file, err := s.files.Open(ctx, filename)
	if err != nil {
		return fmt.Errorf("open stored file: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	if err := s.index.DeleteByFilename(ctx, filename); err != nil {
		return err
	}
	count, err := s.runPipeline(ctx, filename, data)
	if err != nil {
		if statusErr := s.docs.UpdateStatus(ctx, filename, model.DocumentStatusFailed, 0, time.Now().UnixMilli()); statusErr != nil {
			logutil.GetLogger(ctx).Warn("failed to mark document failed", zap.Error(statusErr))
		}
		return err
	}
	return s.docs.UpdateStatus(ctx, filename, model.DocumentStatusReady, count, time.Now().UnixMilli())
}

func (s *IngestService) runPipeline(ctx context.Context, filename string, data []byte) (int, error) {
	text, err := parser.ExtractText(filename, data)
	if err != nil {
		return 0, err
	}
	chunks, err := s.splitter.Split(filename, text)
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))
	logger.Debug("document chunked", zap.Int("chunks", len(chunks)))

	indexed := make([]*model.IndexedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embedChunk(ctx, chunk.Content)
		if err != nil {
			logger.Error("failed to embed chunk", zap.Int("ordinal", chunk.Ordinal), zap.Error(err))
			return 0, err
		}
		indexed = append(indexed, &model.IndexedChunk{
			ID:        chunkID(filename, chunk.Ordinal),
			Chunk:     chunk,
			Embedding: embedding,
		})
	}
	if err := s.index.Add(ctx, indexed); err != nil {
		return 0, err
	}
	return len(indexed), nil
}

func (s *IngestService) embedChunk(ctx context.Context, content string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, content, taskTypeDocument)
}

func chunkID(filename string, ordinal int) string {
	return fmt.Sprintf("%s#%d", filename, ordinal)
}

type byteFile struct {
	*bytes.Reader
}

func newByteFile(data []byte) filestore.ReadSeekCloser {
	return byteFile{Reader: bytes.NewReader(data)}
}

func (byteFile) Close() error {
	return nil
}
