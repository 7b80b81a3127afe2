package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/domain/entity"
	"appforge/internal/infrastructure/store/memory"
)

type fakeSessionService struct {
	repo *memory.SessionRepo

	mu        sync.Mutex
	submitted []entity.CodeRequest
}

func (f *fakeSessionService) Submit(ctx context.Context, req entity.CodeRequest) (*entity.Session, error) {
	if req.UserEmail == "" {
		return nil, entity.ErrRecipientRequired
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, req)
	f.mu.Unlock()
	s := entity.NewSession(req)
	return s, f.repo.Create(ctx, s)
}

func (f *fakeSessionService) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	return f.repo.GetByID(ctx, id)
}

func (f *fakeSessionService) ListSessions(ctx context.Context) ([]*entity.Session, error) {
	return f.repo.List(ctx)
}

func (f *fakeSessionService) WatchSession(ctx context.Context, id string) (<-chan entity.Session, error) {
	return f.repo.Subscribe(ctx, id)
}

func newRouter(svc *fakeSessionService, rateLimit float64, burst int) *mux.Router {
	h := NewAppForgeHandler(svc, rateLimit, burst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func newService() *fakeSessionService {
	return &fakeSessionService{repo: memory.NewSessionRepo()}
}

func postGenerate(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate-code-interactive", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGenerateAccepted(t *testing.T) {
	svc := newService()
	r := newRouter(svc, 0, 0)

	rec := postGenerate(t, r, `{"prompt":"todo app","user_email":"a@b.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, acceptedMessage, resp["response"])
	assert.Len(t, resp["session_id"], 8)
	assert.NotContains(t, resp, "error")

	require.Len(t, svc.submitted, 1)
	assert.Equal(t, entity.CodeRequest{Prompt: "todo app", UserEmail: "a@b.com"}, svc.submitted[0])
}

func TestGenerateMissingRecipient(t *testing.T) {
	svc := newService()
	r := newRouter(svc, 0, 0)

	rec := postGenerate(t, r, `{"prompt":"todo app","user_email":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user_email is required for notification.", resp["error"])
	assert.Empty(t, svc.submitted)
}

func TestGenerateBadJSON(t *testing.T) {
	rec := postGenerate(t, newRouter(newService(), 0, 0), `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRateLimited(t *testing.T) {
	r := newRouter(newService(), 0.001, 1)

	first := postGenerate(t, r, `{"prompt":"a","user_email":"a@b.com"}`)
	second := postGenerate(t, r, `{"prompt":"b","user_email":"a@b.com"}`)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestSessionRoutes(t *testing.T) {
	svc := newService()
	r := newRouter(svc, 0, 0)
	s := &entity.Session{ID: "abc12345", Status: entity.SessionStatusDeployed, URL: "http://localhost:8001", CreatedAt: time.Now()}
	require.NoError(t, svc.repo.Create(context.Background(), s))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc12345", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got entity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "http://localhost:8001", got.URL)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []entity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestEmptySessionListIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(newService(), 0, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	r := newRouter(newService(), 0, 0)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "appforge_http_requests_total")
}

func TestSessionEventsWebsocket(t *testing.T) {
	svc := newService()
	srv := httptest.NewServer(newRouter(svc, 0, 0))
	defer srv.Close()

	s := &entity.Session{ID: "ws123456", Status: entity.SessionStatusGenerating}
	require.NoError(t, svc.repo.Create(context.Background(), s))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/ws123456/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first entity.Session
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, entity.SessionStatusGenerating, first.Status)

	s.UpdateStatus(entity.SessionStatusDeployed)
	s.URL = "http://localhost:8001"
	require.NoError(t, svc.repo.Update(context.Background(), s))

	var final entity.Session
	require.NoError(t, conn.ReadJSON(&final))
	assert.Equal(t, entity.SessionStatusDeployed, final.Status)
	assert.Equal(t, "http://localhost:8001", final.URL)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestSessionEventsUnknownSession(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(newService(), 0, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
