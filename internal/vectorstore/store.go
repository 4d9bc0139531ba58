// Package vectorstore holds the chunk embedding index behind a small
// interface so the backing engine (embedded chromem collection or a
// pgvector table) is a config choice.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/raglib/docqa/internal/config"
	"github.com/raglib/docqa/internal/model"
)

type Store interface {
	Add(ctx context.Context, chunks []*model.IndexedChunk) error
	// Search returns the topK most similar chunks. A non-empty filename
	// restricts results to chunks of that document.
	Search(ctx context.Context, embedding []float32, topK int, filename string) ([]model.ScoredChunk, error)
	DeleteByFilename(ctx context.Context, filename string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Deps carries runtime dependencies a backend may need beyond its own
// config block.
type Deps struct {
	DB *sql.DB
}

type Factory func(args interface{}, deps Deps) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.VectorStoreConfig, deps Deps) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
	return factory(cfg.Data, deps)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector store config: %w", err)
	}
	return nil
}
