package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fileshare/internal/model"
)

// PostgresFileRepo はPostgreSQLを使用したファイルメタデータリポジトリ。
type PostgresFileRepo struct {
	db *sql.DB
}

// NewPostgresFileRepo はPostgresFileRepoを生成する。
func NewPostgresFileRepo(db *sql.DB) *PostgresFileRepo {
	return &PostgresFileRepo{db: db}
}

// CreateBatch は複数のファイルレコードを1トランザクションで作成する。
// recordsが空の場合は何もせず成功を返す。
func (r *PostgresFileRepo) CreateBatch(ctx context.Context, records []*model.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (id, owner_id, name, storage_path, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.OwnerID, rec.Name, rec.StoragePath, rec.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert file record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByOwnerID は指定ユーザーが所有するファイルレコード一覧を返す。
func (r *PostgresFileRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, storage_path, created_at
		 FROM files
		 WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	records := []*model.FileRecord{}
	for rows.Next() {
		rec := &model.FileRecord{}
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.StoragePath, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file records: %w", err)
	}

	return records, nil
}

// compile-time interface check
var _ FileRepository = (*PostgresFileRepo)(nil)
