package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwygoda/feedhandler/internal/adapter/creator"
	"github.com/cwygoda/feedhandler/internal/adapter/sqlite"
	"github.com/cwygoda/feedhandler/internal/domain"
	"github.com/cwygoda/feedhandler/internal/feed"
)

func setupTestServer(t *testing.T, secret string) (*Server, *sqlite.Repository) {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(Deps{
		Docs:      domain.NewDocService(repo),
		Resources: repo,
		Handler:   domain.NewFeedHandler(repo),
		Creator:   creator.NewStoreCreator(repo),
	}, ":8080", secret)
	return srv, repo
}

func post(srv *Server, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeDocs(t *testing.T, rec *httptest.ResponseRecorder) []feed.DocResponse {
	t.Helper()
	var out []feed.DocResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestServer_Submit_Success(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	rec := post(srv, "/feed", `[{"type":"important","api_id":1,"source":"crm"},{"type":"other","api_id":2}]`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	docs := decodeDocs(t, rec)
	require.Len(t, docs, 2)
	assert.NotZero(t, docs[0].ID)
	assert.Equal(t, "pending", docs[0].Status)
	assert.Equal(t, "crm", docs[0].Source)
	assert.Equal(t, "other", docs[1].Type)
}

func TestServer_Submit_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `not json`},
		{"empty feed", `[]`},
		{"missing type", `[{"api_id":1}]`},
		{"missing api id", `[{"type":"important"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := setupTestServer(t, "")

			rec := post(srv, "/feed", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			pending, err := repo.FindPending(context.Background(), 10)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestServer_Submit_RejectsWholeBatch(t *testing.T) {
	srv, repo := setupTestServer(t, "")

	rec := post(srv, "/feed", `[{"type":"important","api_id":1},{"type":"important","api_id":0}]`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pending, _ := repo.FindPending(context.Background(), 10)
	assert.Empty(t, pending)
}

func TestServer_Handle(t *testing.T) {
	srv, repo := setupTestServer(t, "")
	_, err := repo.CreateResource(context.Background(), 2, "existing")
	require.NoError(t, err)

	rec := post(srv, "/feed/handle", `[
		{"type":"important","api_id":1,"source":"crm"},
		{"type":"other","api_id":3},
		{"type":"important","api_id":2,"source":"crm"}
	]`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	docs := decodeDocs(t, rec)
	require.Len(t, docs, 2)

	assert.Equal(t, int64(1), docs[0].APIID)
	assert.Equal(t, "processed", docs[0].Status)
	require.NotNil(t, docs[0].Resource)
	assert.Equal(t, "feed://crm/1", docs[0].Resource.Location)

	assert.Equal(t, int64(2), docs[1].APIID)
	assert.Equal(t, "processed", docs[1].Status)
	require.NotNil(t, docs[1].Resource)
	assert.Equal(t, "existing", docs[1].Resource.Location)
}

func TestServer_GetDoc(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	rec := post(srv, "/feed", `[{"type":"important","api_id":1}]`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeDocs(t, rec)

	rec = get(srv, "/docs/"+strconv.FormatInt(created[0].ID, 10))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc feed.DocResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.Equal(t, created[0].ID, doc.ID)
	assert.Equal(t, "pending", doc.Status)
}

func TestServer_GetDoc_Errors(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	assert.Equal(t, http.StatusNotFound, get(srv, "/docs/9999").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/docs/abc").Code)
}

func TestServer_GetResource(t *testing.T) {
	srv, repo := setupTestServer(t, "")
	_, err := repo.CreateResource(context.Background(), 5, "s3://bucket/5")
	require.NoError(t, err)

	rec := get(srv, "/resources/5")
	require.Equal(t, http.StatusOK, rec.Code)

	var res feed.ResourceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, int64(5), res.APIID)
	assert.Equal(t, "s3://bucket/5", res.Location)

	assert.Equal(t, http.StatusNotFound, get(srv, "/resources/6").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/resources/x").Code)
}

func TestServer_Health(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	rec := get(srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Signature(t *testing.T) {
	const secret = "s3cret"
	body := `[{"type":"important","api_id":1}]`
	now := time.Now().UTC().Format(time.RFC3339)
	stale := time.Now().Add(-10 * time.Minute).UTC().Format(time.RFC3339)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"valid", map[string]string{"X-Timestamp": now, "X-Signature": Sign(now, []byte(body), secret)}, http.StatusCreated},
		{"missing timestamp", map[string]string{"X-Signature": "abc"}, http.StatusUnauthorized},
		{"bad timestamp", map[string]string{"X-Timestamp": "yesterday", "X-Signature": "abc"}, http.StatusUnauthorized},
		{"stale timestamp", map[string]string{"X-Timestamp": stale, "X-Signature": Sign(stale, []byte(body), secret)}, http.StatusUnauthorized},
		{"missing signature", map[string]string{"X-Timestamp": now}, http.StatusUnauthorized},
		{"wrong signature", map[string]string{"X-Timestamp": now, "X-Signature": Sign(now, []byte(body), "other")}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := setupTestServer(t, secret)
			rec := post(srv, "/feed", body, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	rec := post(srv, "/feed/handle", `[]`, map[string]string{"X-Request-ID": "req-123"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_Port(t *testing.T) {
	srv, _ := setupTestServer(t, "")
	assert.Equal(t, ":8080", srv.Addr())
	assert.Equal(t, 8080, srv.Port())
}
