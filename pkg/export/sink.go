package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Sink は生成画像の保存先を抽象化するインターフェースです。
// Save は保存した場所 (パスや URI) を返します。
type Sink interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// DirSink はローカルディレクトリにファイルとして書き出します。
type DirSink struct {
	dir string
}

// NewDirSink は dir を出力先とする DirSink を返します。空なら作業ディレクトリです。
func NewDirSink(dir string) *DirSink {
	if dir == "" {
		dir = "."
	}
	return &DirSink{dir: dir}
}

func (s *DirSink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "画像を保存しました", "path", path, "content_type", contentType, "size", len(data))
	return path, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("不正なファイル名です: %q", name)
	}
	return nil
}
