package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/raglib/docqa/internal/filestore"
	"github.com/raglib/docqa/internal/model"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/vectorstore"
)

type DocumentService struct {
	docs  *repo.DocumentRepo
	files filestore.Store
	index vectorstore.Store
}

func NewDocumentService(docs *repo.DocumentRepo, files filestore.Store, index vectorstore.Store) *DocumentService {
	return &DocumentService{docs: docs, files: files, index: index}
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docs.List(ctx)
}

// Delete removes a single document: its index entries, stored file and
// metadata row. File removal is best effort so a missing blob never strands
// the metadata.
func (s *DocumentService) Delete(ctx context.Context, filename string) error {
	doc, err := s.docs.GetByFilename(ctx, filename)
	if err != nil {
		return err
	}
	if err := s.index.DeleteByFilename(ctx, doc.Filename); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.Filename); err != nil {
		logutil.GetLogger(ctx).Warn("failed to delete stored file",
			zap.String("filename", doc.Filename), zap.Error(err))
	}
	return s.docs.Delete(ctx, doc.Filename)
}

// Clear wipes the whole library: index, stored files and metadata.
func (s *DocumentService) Clear(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return err
	}
	docs, err := s.docs.List(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.files.Delete(ctx, doc.Filename); err != nil {
			logutil.GetLogger(ctx).Warn("failed to delete stored file",
				zap.String("filename", doc.Filename), zap.Error(err))
		}
	}
	return s.docs.Clear(ctx)
}

type LibraryStats struct {
	Documents int
	Chunks    int
}

func (s *DocumentService) Stats(ctx context.Context) (*LibraryStats, error) {
	docCount, err := s.docs.Count(ctx)
	if err != nil {
		return nil, err
	}
	chunkCount, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &LibraryStats{Documents: docCount, Chunks: chunkCount}, nil
}
