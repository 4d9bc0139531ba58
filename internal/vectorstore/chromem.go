package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/raglib/docqa/internal/model"
)

const (
	metaFilename    = "filename"
	metaOrdinal     = "ordinal"
	metaTotalChunks = "total_chunks"
)

type chromemConfig struct {
	Dir        string `json:"dir"`
	Collection string `json:"collection"`
	Compress   bool   `json:"compress"`
	InMemory   bool   `json:"in_memory"`
}

type chromemStore struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

func init() {
	Register("chromem", createChromemStore)
}

func createChromemStore(args interface{}, deps Deps) (Store, error) {
	_ = deps
	cfg := &chromemConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Collection == "" {
		cfg.Collection = "docqa"
	}
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("chromem store dir is required")
		}
		db, err = chromem.NewPersistentDB(cfg.Dir, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection: %w", err)
	}
	return &chromemStore{db: db, collection: collection, name: cfg.Collection}, nil
}

func (s *chromemStore) Add(ctx context.Context, chunks []*model.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID: chunk.ID,
			Metadata: map[string]string{
				metaFilename:    chunk.Chunk.Filename,
				metaOrdinal:     strconv.Itoa(chunk.Chunk.Ordinal),
				metaTotalChunks: strconv.Itoa(chunk.Chunk.TotalChunks),
			},
			Embedding: chunk.Embedding,
			Content:   chunk.Chunk.Content,
		})
	}
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()
	return collection.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *chromemStore) Search(ctx context.Context, embedding []float32, topK int, filename string) ([]model.ScoredChunk, error) {
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()

	count := collection.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	var where map[string]string
	if filename != "" {
		where = map[string]string{metaFilename: filename}
	}
	results, err := collection.QueryEmbedding(ctx, embedding, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem collection: %w", err)
	}
	scored := make([]model.ScoredChunk, 0, len(results))
	for _, result := range results {
		ordinal, _ := strconv.Atoi(result.Metadata[metaOrdinal])
		total, _ := strconv.Atoi(result.Metadata[metaTotalChunks])
		scored = append(scored, model.ScoredChunk{
			Chunk: model.Chunk{
				Filename:    result.Metadata[metaFilename],
				Ordinal:     ordinal,
				TotalChunks: total,
				Content:     result.Content,
				CharLength:  len(result.Content),
			},
			Similarity: result.Similarity,
		})
	}
	return scored, nil
}

func (s *chromemStore) DeleteByFilename(ctx context.Context, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()
	return collection.Delete(ctx, map[string]string{metaFilename: filename}, nil)
}

func (s *chromemStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("drop chromem collection: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate chromem collection: %w", err)
	}
	s.collection = collection
	return nil
}

func (s *chromemStore) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()
	return collection.Count(), nil
}
