package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost", "user": "docqa", "password": "pass", "db_name": "docqa"},
		"ai": {"provider": "gemini", "model": "gemini-2.0-flash", "embed_model": "text-embedding-004", "data": {"api_key": "k"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, "chromem", cfg.VectorStore.Type)
	require.Equal(t, 1000, cfg.RAG.ChunkSize)
	require.Equal(t, 200, cfg.RAG.ChunkOverlap)
	require.Equal(t, 4, cfg.RAG.TopK)
	require.Equal(t, 120, cfg.AI.Timeout)
	require.Equal(t, int64(100*1024*1024), cfg.UploadMaxBytes)
	require.Equal(t, "0 3 * * *", cfg.Jobs.CacheCleanupSpec)
	require.Equal(t, 30, cfg.Jobs.CacheMaxAgeDays)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadMissingPort(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"host": "localhost"},
		"ai": {"provider": "gemini", "model": "m", "embed_model": "e"}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingProvider(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost"},
		"ai": {"model": "m", "embed_model": "e"}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOverlapTooLarge(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost"},
		"ai": {"provider": "gemini", "model": "m", "embed_model": "e"},
		"rag": {"chunk_size": 100, "chunk_overlap": 100}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAuthRequiresSecret(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost"},
		"ai": {"provider": "gemini", "model": "m", "embed_model": "e"},
		"auth": {"enabled": true, "password_hash": "hash"}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
