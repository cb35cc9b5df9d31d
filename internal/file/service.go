// Package file はアップロードファイルの保存とメタデータ管理を提供する。
package file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fileshare/internal/model"
	"github.com/hitoshi/fileshare/internal/repository"
)

// ByteStore はアップロードバイト列の保存インターフェース。
type ByteStore interface {
	// Save はreaderの内容を保存し、保存先パスを返す。
	Save(originalName string, r io.Reader) (string, error)
}

// Upload はアップロードリクエスト内の1ファイル分の入力を表す。
type Upload struct {
	Name   string
	Reader io.Reader
}

// Service はファイルアップロードのビジネスロジックを提供する。
type Service struct {
	store    ByteStore
	fileRepo repository.FileRepository
}

// NewService はServiceを生成する。
func NewService(store ByteStore, fileRepo repository.FileRepository) *Service {
	return &Service{
		store:    store,
		fileRepo: fileRepo,
	}
}

// SaveAll はアップロードされた全ファイルのバイト列を保存し、
// メタデータレコードを1バッチで作成する。
// すべてのレコードはownerIDでタグ付けされる。
// 0件のアップロードは空のバッチとして成功する（エラーではない）。
// バイト列保存後にメタデータ保存が失敗した場合、ディスク上のバイト列は
// ロールバックされない（ファイルシステムとDBをまたぐトランザクションは提供しない）。
func (s *Service) SaveAll(ctx context.Context, ownerID string, uploads []Upload) ([]*model.FileRecord, error) {
	records := make([]*model.FileRecord, 0, len(uploads))

	for _, up := range uploads {
		path, err := s.store.Save(up.Name, up.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to store file %q: %w", up.Name, err)
		}

		records = append(records, &model.FileRecord{
			ID:          uuid.New().String(),
			OwnerID:     ownerID,
			Name:        up.Name,
			StoragePath: path,
			CreatedAt:   time.Now(),
		})
	}

	if err := s.fileRepo.CreateBatch(ctx, records); err != nil {
		slog.Error("file metadata batch insert failed; stored bytes are orphaned",
			slog.Int("count", len(records)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to save file records: %w", err)
	}

	slog.Info("files uploaded",
		slog.String("owner_id", ownerID),
		slog.Int("count", len(records)),
	)

	return records, nil
}

// ListByOwner は指定ユーザーが所有するファイルレコード一覧を返す。
// 並び順はストアの自然順に従う。
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	records, err := s.fileRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return records, nil
}
