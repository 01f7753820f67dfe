package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"google.golang.org/genai"
)

// ImageGeneratorCore はレスポンス解析の共通ロジックを抽象化するインターフェースです。
type ImageGeneratorCore interface {
	ParseToResponse(ctx context.Context, resp *genai.GenerateContentResponse) (*domain.ImageResponse, error)
	ParseRawResponse(ctx context.Context, body []byte) (*domain.ImageResponse, error)
}

// GeminiImageCore は REST と SDK の両方の通信層で共有される解析ロジックを保持します。
type GeminiImageCore struct{}

// NewGeminiImageCore は GeminiImageCore を生成します。
func NewGeminiImageCore() *GeminiImageCore {
	return &GeminiImageCore{}
}

// rawResponse は generateContent の成功レスポンスのうち解析に必要な部分です。
// inlineData.data は受け取った文字列のまま保持します。
type rawResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason genai.FinishReason `json:"finishReason"`
	} `json:"candidates"`
}

// ParseRawResponse は REST の応答本文を解析します。画像データは base64 文字列のまま返します。
// 最初の候補の中で、最初に inlineData を持つパーツだけを見ます。
func (c *GeminiImageCore) ParseRawResponse(ctx context.Context, body []byte) (*domain.ImageResponse, error) {
	var resp rawResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	if len(resp.Candidates) == 0 {
		slog.WarnContext(ctx, "Geminiからの応答に候補が含まれていません")
		return nil, domain.ErrNoImage
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		logFinishReason(ctx, candidate.FinishReason, nil)
		return nil, domain.ErrNoImage
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if part.InlineData == nil {
			continue
		}
		if part.InlineData.Data == "" {
			break
		}
		// デコードできない場合でも文字列はそのまま使う
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			data = nil
		}
		return &domain.ImageResponse{
			Data:     data,
			Base64:   part.InlineData.Data,
			MimeType: part.InlineData.MimeType,
			Text:     strings.Join(texts, "\n"),
		}, nil
	}

	logFinishReason(ctx, candidate.FinishReason, texts)
	return nil, domain.ErrNoImage
}

// ParseToResponse は Gemini のレスポンスを解析して ImageResponse に変換します。
// 最初の候補の中で、最初に inlineData を持つパーツだけを見ます。
func (c *GeminiImageCore) ParseToResponse(ctx context.Context, resp *genai.GenerateContentResponse) (*domain.ImageResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		slog.WarnContext(ctx, "Geminiからの応答に候補が含まれていません")
		return nil, domain.ErrNoImage
	}

	// 最初の候補 (Candidate) のみを利用する
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		if candidate != nil {
			logFinishReason(ctx, candidate.FinishReason, nil)
		}
		return nil, domain.ErrNoImage
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if part.InlineData == nil {
			continue
		}
		if len(part.InlineData.Data) == 0 {
			break
		}
		return &domain.ImageResponse{
			Data:     part.InlineData.Data,
			MimeType: part.InlineData.MIMEType,
			Text:     strings.Join(texts, "\n"),
		}, nil
	}

	logFinishReason(ctx, candidate.FinishReason, texts)
	return nil, domain.ErrNoImage
}

func logFinishReason(ctx context.Context, reason genai.FinishReason, texts []string) {
	if reason != "" && reason != genai.FinishReasonStop && reason != genai.FinishReasonUnspecified {
		slog.WarnContext(ctx, "生成が正常終了しませんでした", "finish_reason", reason)
	}
	if len(texts) > 0 {
		slog.InfoContext(ctx, "画像の代わりにテキストが返されました", "text", strings.Join(texts, "\n"))
	}
}
