package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/utils"
)

// HTTPDoer は HTTP リクエストを実行するクライアントです。*http.Client が満たします。
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTClient は generateContent エンドポイントへ JSON を直接 POST する Transformer です。
// 生成画像の base64 文字列はデコードせずに呼び出し元へ渡します。
type RESTClient struct {
	httpClient HTTPDoer
	core       ImageGeneratorCore
	baseURL    string
	model      string
}

// NewRESTClient は依存関係を注入して RESTClient を初期化します。
// baseURL と model が空の場合は既定値を使います。
func NewRESTClient(httpClient HTTPDoer, core ImageGeneratorCore, baseURL, model string) (*RESTClient, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if core == nil {
		return nil, fmt.Errorf("core (ImageGeneratorCore) is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &RESTClient{
		httpClient: httpClient,
		core:       core,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}, nil
}

type restRequest struct {
	Contents         []restContent        `json:"contents"`
	GenerationConfig restGenerationConfig `json:"generationConfig"`
}

type restContent struct {
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *restInlineData `json:"inline_data,omitempty"`
}

type restInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type restGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type restErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Transform はプロンプトと元画像を1回だけ送信し、生成画像を返します。再試行はしません。
func (c *RESTClient) Transform(ctx context.Context, apiKey string, req domain.TransformRequest) (*domain.ImageResponse, error) {
	body, err := json.Marshal(buildRESTRequest(req))
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(apiKey), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.DebugContext(ctx, "Gemini REST リクエスト送信",
		"model", c.model,
		"key", utils.MaskAPIKey(apiKey),
		"image", utils.TruncateForLog(req.ImagePayload, 32),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Gemini API へのリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, respBody)
	}

	return c.core.ParseRawResponse(ctx, respBody)
}

func (c *RESTClient) endpoint(apiKey string) string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.baseURL, APIVersion, url.PathEscape(c.model), url.QueryEscape(apiKey))
}

func buildRESTRequest(req domain.TransformRequest) restRequest {
	return restRequest{
		Contents: []restContent{{
			Parts: []restPart{
				{Text: req.Prompt},
				{InlineData: &restInlineData{MimeType: requestMIMEType(req), Data: req.ImagePayload}},
			},
		}},
		GenerationConfig: restGenerationConfig{ResponseModalities: ResponseModalities},
	}
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	var eb restErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != nil {
		apiErr.Message = eb.Error.Message
	}
	return apiErr
}
