package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"
	"golang.org/x/crypto/bcrypt"

	"github.com/raglib/docqa/internal/ai"
	"github.com/raglib/docqa/internal/config"
	"github.com/raglib/docqa/internal/filestore"
	"github.com/raglib/docqa/internal/handler"
	"github.com/raglib/docqa/internal/middleware"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/service"
	"github.com/raglib/docqa/internal/splitter"
	"github.com/raglib/docqa/internal/vectorstore"
	"github.com/raglib/docqa/test/testutil"
)

const (
	testPassword  = "secret"
	testJWTSecret = "test-secret"
	testAnswer    = "The answer is in chunk one."
)

// stubProvider embeds text deterministically so retrieval is stable
// without a network dependency.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	return testAnswer, nil
}

func (stubProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	vec := make([]float32, 8)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000.0 + 0.001
	}
	return vec, nil
}

func setupRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	_, err := db.Exec("TRUNCATE documents, chunks, embedding_cache")
	require.NoError(t, err)

	docRepo := repo.NewDocumentRepo(db)

	tmpDir, err := os.MkdirTemp("", "docqa-upload-*")
	require.NoError(t, err)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": tmpDir},
	})
	require.NoError(t, err)

	index, err := vectorstore.New(config.VectorStoreConfig{
		Type: "chromem",
		Data: map[string]interface{}{"in_memory": true},
	}, vectorstore.Deps{})
	require.NoError(t, err)

	provider := stubProvider{}
	generator := ai.NewGenerator(provider, "stub-model")
	embedder := ai.NewEmbedder(provider, "stub-embed")

	sp := splitter.New(1000, 200)
	ingestService := service.NewIngestService(docRepo, store, index, embedder, sp, time.Second*5)
	documentService := service.NewDocumentService(docRepo, store, index)
	queryService := service.NewQueryService(docRepo, index, embedder, generator, 4, 0, time.Second*5)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authService := service.NewAuthService(string(hash), testJWTSecret, time.Hour)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService),
		Documents:   handler.NewDocumentHandler(ingestService, documentService, 20*1024*1024),
		Query:       handler.NewQueryHandler(queryService),
		Health:      handler.NewHealthHandler(documentService, "stub", "stub-model", true),
		AuthEnabled: true,
		JWTSecret:   testJWTSecret,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()
	result := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": testPassword}, "")
	token, _ := result.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

type apiResult struct {
	Code int                    `json:"code"`
	Msg  string                 `json:"msg"`
	Data map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, token string) apiResult {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var result apiResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	return result
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte, token string) apiResult {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var result apiResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	return result
}
