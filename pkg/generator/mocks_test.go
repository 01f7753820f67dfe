package generator

import (
	"context"
	"sync"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

// --- Mocks ---

type mockTransformer struct {
	mu        sync.Mutex
	calls     int
	lastKey   string
	lastReq   domain.TransformRequest
	transform func(ctx context.Context, apiKey string, req domain.TransformRequest) (*domain.ImageResponse, error)
}

func (m *mockTransformer) Transform(ctx context.Context, apiKey string, req domain.TransformRequest) (*domain.ImageResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastKey = apiKey
	m.lastReq = req
	fn := m.transform
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, apiKey, req)
	}
	return &domain.ImageResponse{Data: []byte("fake-png"), MimeType: "image/png"}, nil
}

func (m *mockTransformer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// staticSource は固定の元画像を返す ImageSource なのだ。
type staticSource struct {
	image domain.DataURI
}

func (s *staticSource) Current() domain.DataURI { return s.image }

type notification struct {
	success bool
	message string
}

type mockNotifier struct {
	mu        sync.Mutex
	items     []notification
	onSuccess func()
}

func (m *mockNotifier) Success(_ context.Context, message string) {
	m.mu.Lock()
	m.items = append(m.items, notification{success: true, message: message})
	fn := m.onSuccess
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (m *mockNotifier) Error(_ context.Context, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, notification{success: false, message: message})
}

func (m *mockNotifier) All() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification(nil), m.items...)
}

type savedFile struct {
	name        string
	contentType string
	data        []byte
}

type mockSink struct {
	saved []savedFile
	err   error
}

func (m *mockSink) Save(_ context.Context, name, contentType string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, savedFile{name: name, contentType: contentType, data: data})
	return "/tmp/" + name, nil
}
