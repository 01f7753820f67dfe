package adapters

import (
	"context"
	"testing"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiImageCore_ParseToResponse(t *testing.T) {
	ctx := context.Background()
	core := NewGeminiImageCore()

	t.Run("最初の画像パーツを採用するのだ", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{Parts: []*genai.Part{
						{Text: "here you go"},
						{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("first")}},
						{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
					}},
					FinishReason: genai.FinishReasonStop,
				},
				{
					Content: &genai.Content{Parts: []*genai.Part{
						{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("other-candidate")}},
					}},
				},
			},
		}

		out, err := core.ParseToResponse(ctx, resp)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), out.Data)
		assert.Equal(t, "image/png", out.MimeType)
		assert.Equal(t, "here you go", out.Text)
	})

	t.Run("最初のインラインデータが空なら後続を探さないのだ", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "image/png"}},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("ok")}},
				}},
			}},
		}
		out, err := core.ParseToResponse(ctx, resp)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, domain.ErrNoImage)
	})

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil", nil},
		{"候補なし", &genai.GenerateContentResponse{}},
		{"コンテンツなし", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}},
		{"テキストのみ", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "I cannot do that"}}},
		}}}},
		{"二番目の候補にだけ画像", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "no"}}}},
			{Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: []byte("x")}}}}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name+"はErrNoImageなのだ", func(t *testing.T) {
			out, err := core.ParseToResponse(ctx, tt.resp)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, domain.ErrNoImage)
			assert.Equal(t, "No image in the response", domain.UserMessage(err))
		})
	}
}

func TestGeminiImageCore_ParseRawResponse(t *testing.T) {
	ctx := context.Background()
	core := NewGeminiImageCore()

	t.Run("最初のinlineDataの文字列をそのまま返すのだ", func(t *testing.T) {
		body := `{"candidates":[
			{"content":{"parts":[
				{"text":"here"},
				{"inlineData":{"mimeType":"image/png","data":"QR=="}},
				{"inlineData":{"mimeType":"image/png","data":"c2Vjb25k"}}
			]},"finishReason":"STOP"},
			{"content":{"parts":[{"inlineData":{"data":"b3RoZXI="}}]}}
		]}`
		out, err := core.ParseRawResponse(ctx, []byte(body))
		require.NoError(t, err)
		assert.Equal(t, "QR==", out.Base64)
		assert.Equal(t, "image/png", out.MimeType)
		assert.Equal(t, "here", out.Text)
	})

	t.Run("デコードできない文字列でも失敗しないのだ", func(t *testing.T) {
		out, err := core.ParseRawResponse(ctx, []byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"data":"fakeimagedata"}}]}}]}`))
		require.NoError(t, err)
		assert.Equal(t, "fakeimagedata", out.Base64)
		assert.Empty(t, out.Data)
	})

	tests := []struct {
		name string
		body string
	}{
		{"候補なし", `{}`},
		{"コンテンツなし", `{"candidates":[{"finishReason":"SAFETY"}]}`},
		{"テキストのみ", `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`},
		{"最初のinlineDataが空", `{"candidates":[{"content":{"parts":[{"inlineData":{"data":""}},{"inlineData":{"data":"b2s="}}]}}]}`},
		{"二番目の候補にだけ画像", `{"candidates":[{"content":{"parts":[{"text":"no"}]}},{"content":{"parts":[{"inlineData":{"data":"eA=="}}]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name+"はErrNoImageなのだ", func(t *testing.T) {
			out, err := core.ParseRawResponse(ctx, []byte(tt.body))
			assert.Nil(t, out)
			assert.ErrorIs(t, err, domain.ErrNoImage)
		})
	}

	t.Run("JSONでなければデコードエラーなのだ", func(t *testing.T) {
		_, err := core.ParseRawResponse(ctx, []byte("<html>"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNoImage)
	})
}

func TestAPIError_UserMessage(t *testing.T) {
	assert.Equal(t, "API key not valid", (&APIError{StatusCode: 400, Message: "API key not valid"}).UserMessage())
	assert.Equal(t, "Failed to generate image", (&APIError{StatusCode: 500}).UserMessage())
}
