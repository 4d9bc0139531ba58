package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	DSN      string `json:"dsn"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type VectorStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	EmbedModel    string      `json:"embed_model"`
	Timeout       int         `json:"timeout"`
	MaxInputChars int         `json:"max_input_chars"`
	Data          interface{} `json:"data"`
}

type RAGConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	TopK         int `json:"top_k"`
}

type AuthConfig struct {
	Enabled      bool   `json:"enabled"`
	PasswordHash string `json:"password_hash"`
	JWTSecret    string `json:"jwt_secret"`
	JWTTTLHours  int    `json:"jwt_ttl_hours"`
}

type JobsConfig struct {
	CacheCleanupSpec string `json:"cache_cleanup_spec"`
	CacheMaxAgeDays  int    `json:"cache_max_age_days"`
	ReconcileSpec    string `json:"reconcile_spec"`
}

type Config struct {
	Port           int               `json:"port"`
	LogConfig      logger.LogConfig  `json:"log_config"`
	Database       DatabaseConfig    `json:"database"`
	FileStore      FileStoreConfig   `json:"file_store"`
	VectorStore    VectorStoreConfig `json:"vector_store"`
	AI             AIConfig          `json:"ai"`
	RAG            RAGConfig         `json:"rag"`
	Auth           AuthConfig        `json:"auth"`
	UploadMaxBytes int64             `json:"upload_max_bytes"`
	QueryWindowMS  int               `json:"query_window_ms"`
	Jobs           JobsConfig        `json:"jobs"`
	CORSAllowlist  []string          `json:"cors_allowlist"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.host or database.dsn is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return nil, fmt.Errorf("rag.chunk_overlap must be smaller than rag.chunk_size")
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.PasswordHash == "" {
			return nil, fmt.Errorf("auth.password_hash is required when auth is enabled")
		}
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("auth.jwt_secret is required when auth is enabled")
		}
		if cfg.Auth.JWTTTLHours == 0 {
			cfg.Auth.JWTTTLHours = 72
		}
	}
	if cfg.UploadMaxBytes == 0 {
		cfg.UploadMaxBytes = 100 * 1024 * 1024
	}
	if cfg.Jobs.CacheCleanupSpec == "" {
		cfg.Jobs.CacheCleanupSpec = "0 3 * * *"
	}
	if cfg.Jobs.CacheMaxAgeDays == 0 {
		cfg.Jobs.CacheMaxAgeDays = 30
	}
	if cfg.Jobs.ReconcileSpec == "" {
		cfg.Jobs.ReconcileSpec = "*/30 * * * *"
	}
	return &cfg, nil
}
