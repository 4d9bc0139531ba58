package model

// Chunk is one contiguous slice of a document's extracted text.
// Ordinals are contiguous per file, starting at 0.
type Chunk struct {
	Filename    string `json:"filename"`
	Ordinal     int    `json:"ordinal"`
	TotalChunks int    `json:"total_chunks"`
	Content     string `json:"content"`
	CharLength  int    `json:"char_length"`
}

// IndexedChunk is a chunk together with its embedding, as stored in the
// vector index.
type IndexedChunk struct {
	ID        string
	Chunk     Chunk
	Embedding []float32
}

// ScoredChunk is a retrieval result.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float32
}
