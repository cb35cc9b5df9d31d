package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fileshare/internal/metrics"
	"github.com/hitoshi/fileshare/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ファイル
	FileService   FileServiceInterface
	UploadDir     string // 静的配信する保存先ディレクトリ
	UploadMaxSize int64

	// 観測
	HealthChecker HealthChecker
	Collector     metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging →（保護ルートのみ）Session → RateLimit
//
// 認証ルート（/auth/*）、ルート、ヘルスチェック、静的配信はセッション検証の外に配置する。
// /uploads/ 配下はアクセス制御なしで公開される（保存パスを知っていれば誰でも取得可能）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.UserFinder, deps.Collector, deps.AuthConfig)
	fileHandler := NewFileHandler(deps.FileService, deps.Collector, deps.UploadMaxSize)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode("Server started")
	})

	r.Get("/health", healthHandler.Health)

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	// アップロード済みバイト列の読み取り専用静的配信
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/user", authHandler.Me)
		r.Get("/api/files", fileHandler.List)

		// アップロードには専用レート制限を追加
		r.With(deps.RateLimiter.UploadMiddleware()).Post("/api/upload", fileHandler.Upload)
	})

	return r
}
