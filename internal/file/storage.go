package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskStore はアップロードバイト列をローカルファイルシステムに保存する。
// 保存先ディレクトリは全リクエストで共有される。
type DiskStore struct {
	baseDir string
}

// NewDiskStore はDiskStoreを生成し、保存先ディレクトリを作成する。
func NewDiskStore(baseDir string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{baseDir: baseDir}, nil
}

// BaseDir は保存先ディレクトリを返す。静的配信のマウントに使用する。
func (s *DiskStore) BaseDir() string {
	return s.baseDir
}

// Save はreaderの内容を衝突耐性のある名前で保存し、保存先パスを返す。
// ファイル名は「Unixミリ秒タイムスタンプ-元ファイル名」。
// 同時アップロードで同名が生成された場合はUUIDサフィックスで回避する。
// バイト列は呼び出しが返る前に完全に書き込まれる。
func (s *DiskStore) Save(originalName string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFilename(originalName))

	path := filepath.Join(s.baseDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		// タイムスタンプ+元名が同一ミリ秒で衝突した場合のフォールバック
		name = fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.New().String()[:8], sanitizeFilename(originalName))
		path = filepath.Join(s.baseDir, name)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	return path, nil
}

// sanitizeFilename は元ファイル名からパス区切りと親ディレクトリ参照を除去する。
// クライアントが送る名前は信用しない。
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
