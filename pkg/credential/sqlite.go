package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const (
	getCurrentMigration = `PRAGMA user_version;`
	setCurrentMigration = `PRAGMA user_version = `

	createKV = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)
	`

	selectValue = `SELECT value FROM kv WHERE key = ?`
	upsertValue = `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
)

type migration struct {
	name  string
	query string
}

var migrations = []migration{
	{name: "create kv table", query: createKV},
}

// SQLiteStore はローカルの SQLite ファイルに API キーを保存する Store です。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore は path の SQLite データベースを開き、必要なマイグレーションを適用します。
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("SQLite を開けません: %w", err)
	}
	// modernc の sqlite は単一接続で使うのが安全
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗しました: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectValue, StorageKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("API キーの読み込みに失敗しました: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) Save(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, upsertValue, StorageKey, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("API キーの保存に失敗しました: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じます。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	var current int
	if err := db.QueryRowContext(ctx, getCurrentMigration).Scan(&current); err != nil {
		return err
	}

	required := len(migrations)
	for num := current + 1; num <= required; num++ {
		slog.DebugContext(ctx, "マイグレーションを実行します", "version", num, "name", migrations[num-1].name)
		if err := execMigration(ctx, db, num); err != nil {
			return fmt.Errorf("migration %d %q: %w", num, migrations[num-1].name, err)
		}
	}
	return nil
}

func execMigration(ctx context.Context, db *sql.DB, num int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, migrations[num-1].query); err != nil {
		return err
	}
	// PRAGMA はプレースホルダを受け付けないため数値を直接埋め込む
	if _, err := tx.ExecContext(ctx, setCurrentMigration+strconv.Itoa(num)); err != nil {
		return err
	}
	return tx.Commit()
}
