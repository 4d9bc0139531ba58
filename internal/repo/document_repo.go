package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/raglib/docqa/internal/model"
	"github.com/raglib/docqa/internal/pkg/dbutil"
	appErr "github.com/raglib/docqa/internal/pkg/errors"
)

var documentFields = []string{"id", "filename", "size_bytes", "content_hash", "chunk_count", "status", "ctime", "mtime"}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":           doc.ID,
		"filename":     doc.Filename,
		"size_bytes":   doc.SizeBytes,
		"content_hash": doc.ContentHash,
		"chunk_count":  doc.ChunkCount,
		"status":       doc.Status,
		"ctime":        doc.Ctime,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) Update(ctx context.Context, doc *model.Document) error {
	where := map[string]interface{}{
		"filename": doc.Filename,
	}
	update := map[string]interface{}{
		"size_bytes":   doc.SizeBytes,
		"content_hash": doc.ContentHash,
		"chunk_count":  doc.ChunkCount,
		"status":       doc.Status,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, filename, status string, chunkCount int, mtime int64) error {
	where := map[string]interface{}{
		"filename": filename,
	}
	update := map[string]interface{}{
		"status":      status,
		"chunk_count": chunkCount,
		"mtime":       mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) GetByFilename(ctx context.Context, filename string) (*model.Document, error) {
	where := map[string]interface{}{
		"filename": filename,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var doc model.Document
	if err := scanDocument(rows, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) Delete(ctx context.Context, filename string) error {
	where := map[string]interface{}{
		"filename": filename,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents")
	return err
}

func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanDocument(rows *sql.Rows, doc *model.Document) error {
	return rows.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.SizeBytes,
		&doc.ContentHash,
		&doc.ChunkCount,
		&doc.Status,
		&doc.Ctime,
		&doc.Mtime,
	)
}
