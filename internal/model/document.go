package model

const (
	DocumentStatusIndexing = "indexing"
	DocumentStatusReady    = "ready"
	DocumentStatusFailed   = "failed"
)

type Document struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`
	ChunkCount  int    `json:"chunk_count"`
	Status      string `json:"status"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}
