package imagesource

import (
	"context"
	"errors"
	"io"
)

// mockHTTPClient は HTTPClient インターフェースのテスト用モックなのだ。
type mockHTTPClient struct {
	data   []byte
	err    error
	called bool
}

func (m *mockHTTPClient) FetchBytes(_ context.Context, _ string) ([]byte, error) {
	m.called = true
	return m.data, m.err
}

// mockContentFetcher は Content-Type も返す ContentFetcher のモックなのだ。
type mockContentFetcher struct {
	mockHTTPClient
	contentType string
}

func (m *mockContentFetcher) FetchContent(ctx context.Context, url string) ([]byte, string, error) {
	data, err := m.FetchBytes(ctx, url)
	return data, m.contentType, err
}

// failingReader は常に読み込みエラーを返すのだ。
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk error") }
func (failingReader) Close() error             { return nil }

func unreadableFile(name, mimeType string) File {
	return File{
		Name:     name,
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return failingReader{}, nil
		},
	}
}
