// Package sqlite SQLiteによるクールダウン期限の永続化
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"command-server/internal/domain/command"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var _ command.CooldownStore = (*CooldownStore)(nil)

// CooldownStore SQLiteに保存するクールダウンストア
// 再起動をまたいでクールダウンを維持する
type CooldownStore struct {
	db *sql.DB
}

// Open SQLiteを開きスキーマを適用する
func Open(dsn string) (*CooldownStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLiteは単一ライター
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &CooldownStore{db: db}, nil
}

// Close 接続を閉じる
func (s *CooldownStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping 接続を確認
func (s *CooldownStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Expiry クールダウン期限を返す（未設定ならゼロ値）
func (s *CooldownStore) Expiry(ctx context.Context, key string) (time.Time, error) {
	var millis int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM cooldowns WHERE cooldown_key = ?`, key,
	).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load cooldown %s: %w", key, err)
	}
	return time.UnixMilli(millis).UTC(), nil
}

// SetExpiry クールダウン期限を保存
func (s *CooldownStore) SetExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cooldowns (cooldown_key, expires_at) VALUES (?, ?)
		 ON CONFLICT(cooldown_key) DO UPDATE SET expires_at = excluded.expires_at`,
		key, expiresAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save cooldown %s: %w", key, err)
	}
	return nil
}

// Clear クールダウンを解除
func (s *CooldownStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE cooldown_key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear cooldown %s: %w", key, err)
	}
	return nil
}

// Sweep 期限切れのエントリを削除し、削除数を返す
func (s *CooldownStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE expires_at <= ?`, now.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cooldowns: %w", err)
	}
	return res.RowsAffected()
}
