package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/fileshare/internal/file"
	"github.com/hitoshi/fileshare/internal/metrics"
	"github.com/hitoshi/fileshare/internal/middleware"
	"github.com/hitoshi/fileshare/internal/model"
)

// uploadFieldName はマルチパートリクエスト内のファイルフィールド名。
const uploadFieldName = "files"

// FileServiceInterface はファイルハンドラーが必要とするサービスインターフェース。
type FileServiceInterface interface {
	SaveAll(ctx context.Context, ownerID string, uploads []file.Upload) ([]*model.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error)
}

// FileHandler はファイルアップロード・一覧のHTTPハンドラー。
type FileHandler struct {
	service   FileServiceInterface
	collector metrics.MetricsCollector
	maxSize   int64
}

// NewFileHandler はFileHandlerを生成する。
// maxSizeはマルチパートリクエスト全体のサイズ上限（バイト）。
func NewFileHandler(service FileServiceInterface, collector metrics.MetricsCollector, maxSize int64) *FileHandler {
	return &FileHandler{
		service:   service,
		collector: collector,
		maxSize:   maxSize,
	}
}

// fileResponse はアップロード・一覧レスポンスの1ファイル分を表す。
type fileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

func toFileResponse(rec *model.FileRecord) fileResponse {
	return fileResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Path:      rec.StoragePath,
		User:      rec.OwnerID,
		CreatedAt: rec.CreatedAt,
	}
}

// Upload はマルチパートの"files"フィールドからファイルを受け取り保存する。
// セッションミドルウェアの内側に配置されるため、未認証リクエストでは
// マルチパートのパース自体が実行されず、バイト列は一切書き込まれない。
// 0件のアップロードは空配列の200レスポンスになる。
// POST /api/upload
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		slog.Warn("failed to parse multipart form",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.collector.RecordUploadFailure()
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewUploadTooLargeError(h.maxSize))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadFieldName]

	uploads := make([]file.Upload, 0, len(headers))
	var totalBytes int64
	closers := make([]interface{ Close() error }, 0, len(headers))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, fh := range headers {
		part, err := fh.Open()
		if err != nil {
			h.collector.RecordUploadFailure()
			slog.Error("failed to open multipart file",
				slog.String("name", fh.Filename),
				slog.String("error", err.Error()),
			)
			middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewUploadFailedError("invalid multipart data"))
			return
		}
		closers = append(closers, part)
		totalBytes += fh.Size
		uploads = append(uploads, file.Upload{Name: fh.Filename, Reader: part})
	}

	records, err := h.service.SaveAll(r.Context(), userID, uploads)
	if err != nil {
		h.collector.RecordUploadFailure()
		slog.Error("upload failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewUploadFailedError("storage error"))
		return
	}

	h.collector.RecordUploadSuccess(len(records))
	h.collector.RecordUploadBytes(totalBytes)
	h.collector.RecordUploadLatency(time.Since(start))

	resp := make([]fileResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toFileResponse(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// List は現在のユーザーが所有するファイル一覧を返す。
// 他ユーザーのレコードは決して含まれない。
// GET /api/files
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	records, err := h.service.ListByOwner(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list files",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewFileListFailedError())
		return
	}

	resp := make([]fileResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toFileResponse(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
