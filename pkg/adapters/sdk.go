package adapters

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/utils"
	"google.golang.org/genai"
)

// SDKClient は google.golang.org/genai を経由して同じリクエストを送る Transformer です。
type SDKClient struct {
	httpClient *http.Client
	core       ImageGeneratorCore
	baseURL    string
	model      string
}

// NewSDKClient は依存関係を注入して SDKClient を初期化します。
// httpClient が nil の場合は SDK の既定クライアントを使います。
func NewSDKClient(httpClient *http.Client, core ImageGeneratorCore, baseURL, model string) (*SDKClient, error) {
	if core == nil {
		return nil, fmt.Errorf("core (ImageGeneratorCore) is required")
	}
	if model == "" {
		model = DefaultModel
	}
	return &SDKClient{
		httpClient: httpClient,
		core:       core,
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// Transform はリクエストごとに渡された API キーで genai クライアントを作成して実行します。
func (c *SDKClient) Transform(ctx context.Context, apiKey string, req domain.TransformRequest) (*domain.ImageResponse, error) {
	imageData, err := base64.StdEncoding.DecodeString(req.ImagePayload)
	if err != nil {
		return nil, fmt.Errorf("元画像の base64 デコードに失敗しました: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL,
			APIVersion: APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの作成に失敗しました: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(imageData, requestMIMEType(req)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{ResponseModalities: ResponseModalities}

	slog.DebugContext(ctx, "Gemini SDK リクエスト送信", "model", c.model, "key", utils.MaskAPIKey(apiKey))

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, mapSDKError(err)
	}
	return c.core.ParseToResponse(ctx, resp)
}

func mapSDKError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("Gemini API へのリクエストに失敗しました: %w", err)
}
