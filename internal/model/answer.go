package model

type SourceRef struct {
	Filename   string  `json:"filename"`
	Ordinal    int     `json:"ordinal"`
	Preview    string  `json:"preview"`
	Similarity float32 `json:"similarity"`
}

type Answer struct {
	Text    string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

type EmbeddingCache struct {
	ModelName   string
	TaskType    string
	ContentHash string
	Embedding   []float32
	Ctime       int64
}
