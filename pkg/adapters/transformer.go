package adapters

import (
	"context"
	"fmt"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

const (
	// DefaultModel は画像変換に使用する既定のモデルです。
	DefaultModel = "gemini-2.0-flash-exp-image-generation"
	// DefaultBaseURL は Gemini API の既定のエンドポイントです。
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// APIVersion はリクエストパスに含める API バージョンです。
	APIVersion = "v1beta"
)

// ResponseModalities は生成時に要求する出力モダリティです。
var ResponseModalities = []string{"Text", "Image"}

// Transformer はプロンプトと元画像から新しい画像を生成する通信層です。
type Transformer interface {
	Transform(ctx context.Context, apiKey string, req domain.TransformRequest) (*domain.ImageResponse, error)
}

// APIError は Gemini API が返した HTTP エラーです。
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Gemini API エラー (status %d): %s", e.StatusCode, e.UserMessage())
}

// UserMessage はサーバーのメッセージ、無ければ既定の文言を返します。
func (e *APIError) UserMessage() string {
	if e.Message == "" {
		return domain.FallbackErrorMessage
	}
	return e.Message
}

func requestMIMEType(req domain.TransformRequest) string {
	if req.ImageMIMEType == "" {
		return domain.RequestImageMIMEType
	}
	return req.ImageMIMEType
}
