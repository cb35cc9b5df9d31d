package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fileshare/internal/metrics"
	"github.com/hitoshi/fileshare/internal/middleware"
	"github.com/hitoshi/fileshare/internal/model"
)

// --- モック定義 ---

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockHealthChecker struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// testRouterDeps はテスト用のルーター依存一式を構築する。
// セッションID "valid-session" がユーザー "user-1" に解決される。
func testRouterDeps(t *testing.T, fileService *mockFileService) *RouterDeps {
	t.Helper()

	sessionFinder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return &model.Session{
					ID:        "valid-session",
					UserID:    "user-1",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}
	userFinder := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@x.com", Name: "Test User"}, nil
		},
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		SessionFinder:     sessionFinder,
		UserFinder:        userFinder,
		CORSAllowedOrigin: "http://localhost:5173",
		RateLimiter:       rl,

		AuthService: &mockAuthService{},
		AuthConfig:  testAuthHandlerConfig(),

		FileService:   fileService,
		UploadDir:     t.TempDir(),
		UploadMaxSize: 32 << 20,

		HealthChecker: &mockHealthChecker{},
		Collector:     &mockCollector{},
	}

	return deps
}

// --- テスト ---

func TestRouter_Root_ReturnsServerStarted(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body != "Server started" {
		t.Errorf("body = %q, want %q", body, "Server started")
	}
}

func TestRouter_Health(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_Health_DBDown_Returns503(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})
	deps.HealthChecker = &mockHealthChecker{
		pingFn: func(ctx context.Context) error { return errors.New("connection refused") },
	}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}

func TestRouter_ProtectedRoutes_RequireSession(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"current user", http.MethodGet, "/api/user"},
		{"file list", http.MethodGet, "/api/files"},
		{"upload", http.MethodPost, "/api/upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileService := &mockFileService{}
			deps := testRouterDeps(t, fileService)
			router := NewRouter(deps)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
			}
			if fileService.saveAllCalls != 0 {
				t.Errorf("SaveAll should not be called, calls = %d", fileService.saveAllCalls)
			}
		})
	}
}

func TestRouter_Upload_Unauthenticated_NoBytesConsumed(t *testing.T) {
	fileService := &mockFileService{}
	deps := testRouterDeps(t, fileService)
	router := NewRouter(deps)

	body, contentType := multipartBody(t, map[string]string{"a.txt": "hello"})
	bodyLen := body.Len()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	// ゲートで拒否されたリクエストのボディは読み込まれない
	if body.Len() != bodyLen {
		t.Errorf("request body was consumed: remaining %d, want %d", body.Len(), bodyLen)
	}
	if fileService.saveAllCalls != 0 {
		t.Errorf("SaveAll calls = %d, want 0", fileService.saveAllCalls)
	}
}

func TestRouter_AuthenticatedFlow(t *testing.T) {
	fileService := &mockFileService{}
	deps := testRouterDeps(t, fileService)
	router := NewRouter(deps)

	// GET /api/user
	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("GET /api/user status = %d, want 200", w.Result().StatusCode)
	}

	var me map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&me); err != nil {
		t.Fatalf("failed to decode /api/user response: %v", err)
	}
	if me["id"] != "user-1" {
		t.Errorf("id = %v, want user-1", me["id"])
	}

	// POST /api/upload
	body, contentType := multipartBody(t, map[string]string{"a.txt": "hello"})
	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("POST /api/upload status = %d, want 200", w.Result().StatusCode)
	}
	if len(fileService.saved) != 1 || fileService.saved[0].ownerID != "user-1" {
		t.Errorf("saved = %+v, want 1 file owned by user-1", fileService.saved)
	}

	// GET /api/files
	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("GET /api/files status = %d, want 200", w.Result().StatusCode)
	}
}

func TestRouter_UploadsStaticServing(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})

	// 保存済みファイルを用意
	storedName := "1700000000000-sample.txt"
	if err := os.WriteFile(filepath.Join(deps.UploadDir, storedName), []byte("stored content"), 0o644); err != nil {
		t.Fatalf("failed to write stored file: %v", err)
	}

	router := NewRouter(deps)

	// 認証なしで取得できる（公開配信）
	req := httptest.NewRequest(http.MethodGet, "/uploads/"+storedName, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if string(content) != "stored content" {
		t.Errorf("content = %q, want %q", string(content), "stored content")
	}
}

func TestRouter_UploadsStaticServing_NotFound(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/uploads/no-such-file.txt", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})
	registry := prometheus.NewRegistry()
	deps.Collector = metrics.NewCollector(registry)
	deps.Gatherer = registry
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	deps := testRouterDeps(t, &mockFileService{})
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q, want configured origin", got)
	}
}
