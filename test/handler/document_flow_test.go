package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raglib/docqa/internal/pkg/errcode"
)

func TestUploadRequiresAuth(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	result := uploadFile(t, router, "doc.txt", []byte("hello"), "")
	require.Equal(t, errcode.ErrUnauthorized, result.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := loginToken(t, router)

	// upload
	content := []byte("The capital of France is Paris. The capital of Japan is Tokyo.")
	result := uploadFile(t, router, "capitals.txt", content, token)
	require.Equal(t, 0, result.Code, result.Msg)
	require.Equal(t, "capitals.txt", result.Data["filename"])
	require.Equal(t, "ready", result.Data["status"])
	require.Equal(t, float64(1), result.Data["chunk_count"])
	require.Equal(t, float64(len(content)), result.Data["size_bytes"])
	require.NotEmpty(t, result.Data["size"])

	// list is public
	result = doJSON(t, router, http.MethodGet, "/api/v1/documents", nil, "")
	require.Equal(t, 0, result.Code)
	require.Equal(t, float64(1), result.Data["total"])
	items, ok := result.Data["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	require.Equal(t, "capitals.txt", item["filename"])

	// query
	result = doJSON(t, router, http.MethodPost, "/api/v1/query", map[string]string{"question": "What is the capital of France?"}, "")
	require.Equal(t, 0, result.Code, result.Msg)
	require.Equal(t, testAnswer, result.Data["answer"])
	sources, ok := result.Data["sources"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, sources)
	source := sources[0].(map[string]interface{})
	require.Equal(t, "capitals.txt", source["filename"])

	// health reflects the index
	result = doJSON(t, router, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, 0, result.Code)
	require.Equal(t, "ok", result.Data["status"])
	require.Equal(t, float64(1), result.Data["documents_indexed"])

	// delete
	result = doJSON(t, router, http.MethodDelete, "/api/v1/documents/capitals.txt", nil, token)
	require.Equal(t, 0, result.Code, result.Msg)

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents", nil, "")
	require.Equal(t, float64(0), result.Data["total"])
}

func TestReuploadKeepsDocumentIdentity(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := loginToken(t, router)

	result := uploadFile(t, router, "notes.txt", []byte("first version of the notes"), token)
	require.Equal(t, 0, result.Code, result.Msg)

	listed := doJSON(t, router, http.MethodGet, "/api/v1/documents", nil, "")
	firstID := listed.Data["items"].([]interface{})[0].(map[string]interface{})["id"]
	require.NotEmpty(t, firstID)

	result = uploadFile(t, router, "notes.txt", []byte("second, longer version of the notes"), token)
	require.Equal(t, 0, result.Code, result.Msg)

	listed = doJSON(t, router, http.MethodGet, "/api/v1/documents", nil, "")
	require.Equal(t, float64(1), listed.Data["total"])
	item := listed.Data["items"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, firstID, item["id"])
	require.Equal(t, float64(len("second, longer version of the notes")), item["size_bytes"])
}

func TestQueryEmptyIndex(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	result := doJSON(t, router, http.MethodPost, "/api/v1/query", map[string]string{"question": "anything?"}, "")
	require.Equal(t, 0, result.Code)
	require.Contains(t, result.Data["answer"], "No documents indexed yet")
	sources, ok := result.Data["sources"].([]interface{})
	require.True(t, ok)
	require.Empty(t, sources)
}

func TestUploadUnsupportedExtension(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := loginToken(t, router)

	result := uploadFile(t, router, "photo.png", []byte{0x89, 0x50, 0x4e, 0x47}, token)
	require.Equal(t, errcode.ErrUnsupportedFile, result.Code)
}

func TestClearDocuments(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := loginToken(t, router)

	uploadFile(t, router, "a.txt", []byte("alpha document text"), token)
	uploadFile(t, router, "b.txt", []byte("beta document text"), token)

	result := doJSON(t, router, http.MethodDelete, "/api/v1/documents", nil, token)
	require.Equal(t, 0, result.Code, result.Msg)

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents", nil, "")
	require.Equal(t, float64(0), result.Data["total"])
}

func TestDeleteMissingDocument(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := loginToken(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/nope.txt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var result apiResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, errcode.ErrNotFound, result.Code)
}
