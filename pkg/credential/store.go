package credential

import (
	"context"
	"sync"
)

const (
	// StorageKey は API キーを保存する固定のキー名です。
	StorageKey = "gemini-api-key"
	// AppName は設定ディレクトリ名などに使うアプリケーション名です。
	AppName = "gemini-image-studio"
)

// Store は API キーの永続化を抽象化するインターフェースです。
// Load は何も保存されていない場合に空文字と nil を返します。
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, value string) error
}

// MemoryStore はプロセス内だけで値を保持する Store です。
type MemoryStore struct {
	mu    sync.RWMutex
	value string
}

// NewMemoryStore は初期値を持つ MemoryStore を返します。
func NewMemoryStore(initial string) *MemoryStore {
	return &MemoryStore{value: initial}
}

func (m *MemoryStore) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, nil
}

func (m *MemoryStore) Save(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	return nil
}
