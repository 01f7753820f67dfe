package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"google.golang.org/genai"
)

// mockImageCore は ImageGeneratorCore インターフェースのテスト用モックなのだ。
type mockImageCore struct {
	parseFunc func(ctx context.Context, resp *genai.GenerateContentResponse) (*domain.ImageResponse, error)
	rawFunc   func(ctx context.Context, body []byte) (*domain.ImageResponse, error)
}

func (m *mockImageCore) ParseToResponse(ctx context.Context, resp *genai.GenerateContentResponse) (*domain.ImageResponse, error) {
	if m.parseFunc != nil {
		return m.parseFunc(ctx, resp)
	}
	return nil, nil
}

func (m *mockImageCore) ParseRawResponse(ctx context.Context, body []byte) (*domain.ImageResponse, error) {
	if m.rawFunc != nil {
		return m.rawFunc(ctx, body)
	}
	return nil, nil
}

// capturedRequest はテストサーバーが受け取ったリクエストの記録なのだ。
type capturedRequest struct {
	Method      string
	Path        string
	Query       map[string][]string
	Header      http.Header
	ContentType string
	Body        map[string]any
}

// newGeminiServer は固定のステータスと本文を返すテストサーバーを立てるのだ。
func newGeminiServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)
		captured = append(captured, capturedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.Query(),
			Header:      r.Header.Clone(),
			ContentType: r.Header.Get("Content-Type"),
			Body:        decoded,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

// erroringDoer は常に通信エラーを返すのだ。
type erroringDoer struct{ err error }

func (d erroringDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }
