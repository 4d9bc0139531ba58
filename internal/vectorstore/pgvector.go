package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/raglib/docqa/internal/model"
)

// pgvectorStore keeps chunk embeddings in the chunks table and relies on
// pgvector's cosine distance operator for similarity search.
type pgvectorStore struct {
	db *sql.DB
}

func init() {
	Register("pgvector", createPgvectorStore)
}

func createPgvectorStore(args interface{}, deps Deps) (Store, error) {
	_ = args
	if deps.DB == nil {
		return nil, fmt.Errorf("pgvector store requires a database")
	}
	return &pgvectorStore{db: deps.DB}, nil
}

func (s *pgvectorStore) Add(ctx context.Context, chunks []*model.IndexedChunk) error {
	const query = `
		INSERT INTO chunks (id, filename, ordinal, total_chunks, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			total_chunks = EXCLUDED.total_chunks,
			embedding = EXCLUDED.embedding
	`
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, query,
			chunk.ID,
			chunk.Chunk.Filename,
			chunk.Chunk.Ordinal,
			chunk.Chunk.TotalChunks,
			chunk.Chunk.Content,
			pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *pgvectorStore) Search(ctx context.Context, embedding []float32, topK int, filename string) ([]model.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	query := `
		SELECT filename, ordinal, total_chunks, content, 1 - (embedding <=> $1) AS similarity
		FROM chunks
	`
	args := []interface{}{pgvector.NewVector(embedding)}
	if filename != "" {
		query += ` WHERE filename = $2 ORDER BY embedding <=> $1 LIMIT $3`
		args = append(args, filename, topK)
	} else {
		query += ` ORDER BY embedding <=> $1 LIMIT $2`
		args = append(args, topK)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var scored []model.ScoredChunk
	for rows.Next() {
		var item model.ScoredChunk
		if err := rows.Scan(
			&item.Chunk.Filename,
			&item.Chunk.Ordinal,
			&item.Chunk.TotalChunks,
			&item.Chunk.Content,
			&item.Similarity,
		); err != nil {
			return nil, err
		}
		item.Chunk.CharLength = len(item.Chunk.Content)
		scored = append(scored, item)
	}
	return scored, rows.Err()
}

func (s *pgvectorStore) DeleteByFilename(ctx context.Context, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE filename = $1`, filename)
	return err
}

func (s *pgvectorStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

func (s *pgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
