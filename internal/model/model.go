// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回ログイン時に作成され、再ログインでフィールドは更新されない。
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// (provider, provider_user_id) はDB側でUNIQUE制約により一意。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// IDは不透明トークンで、作成時刻からの絶対TTLで失効する。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// FileRecord はアップロードされたファイル1件のメタデータを表す。
// StoragePathは/uploads/配下で公開される保存先パス。
type FileRecord struct {
	ID          string
	OwnerID     string
	Name        string
	StoragePath string
	CreatedAt   time.Time
}
