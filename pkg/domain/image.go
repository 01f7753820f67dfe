package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// RequestImageMIMEType は送信する inline_data に付与する固定の MIME タイプです。
	RequestImageMIMEType = "image/jpeg"
	// GeneratedImageMIMEType は生成画像を Data URI に包み直す際の MIME タイプです。
	GeneratedImageMIMEType = "image/png"
)

// DataURI は MIME プレフィックス付きで base64 エンコードされた画像文字列です。
// 例: data:image/png;base64,iVBORw0KGgo...
type DataURI string

// NewDataURI はバイト列を base64 エンコードして Data URI を組み立てます。
func NewDataURI(mimeType string, data []byte) DataURI {
	return NewDataURIFromBase64(mimeType, base64.StdEncoding.EncodeToString(data))
}

// NewDataURIFromBase64 はエンコード済みペイロードをそのまま Data URI に包みます。
func NewDataURIFromBase64(mimeType, payload string) DataURI {
	return DataURI(fmt.Sprintf("data:%s;base64,%s", mimeType, payload))
}

// IsEmpty は値が空かどうかを返します。
func (d DataURI) IsEmpty() bool {
	return d == ""
}

// String は Data URI 全体を返します。
func (d DataURI) String() string {
	return string(d)
}

// Payload は最初のカンマ以降、つまり MIME プレフィックスを除いた base64 部分を返します。
// カンマを含まない場合は空文字を返します。
func (d DataURI) Payload() string {
	_, payload, found := strings.Cut(string(d), ",")
	if !found {
		return ""
	}
	return payload
}

// MIMEType は "data:" と ";base64" の間の MIME タイプを返します。
func (d DataURI) MIMEType() string {
	header, _, found := strings.Cut(string(d), ",")
	if !found {
		return ""
	}
	header = strings.TrimPrefix(header, "data:")
	mimeType, _, _ := strings.Cut(header, ";")
	return mimeType
}

// Bytes はペイロードをデコードしたバイナリを返します。
func (d DataURI) Bytes() ([]byte, error) {
	if d.IsEmpty() {
		return nil, fmt.Errorf("data URI is empty")
	}
	if !strings.HasPrefix(string(d), "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	payload := d.Payload()
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// パディングが省略されたペイロードも受け付ける
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("base64 デコードに失敗しました: %w", err)
	}
	return data, nil
}

// TransformRequest は Gemini に送る1回分の変換要求です。
type TransformRequest struct {
	Prompt string
	// ImagePayload は MIME プレフィックスを取り除いた base64 文字列です。
	ImagePayload string
	// ImageMIMEType は inline_data に付与する MIME タイプです。空なら RequestImageMIMEType。
	ImageMIMEType string
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data []byte
	// Base64 はサーバーが返したエンコード済みの文字列です。REST 経由の場合のみ設定されます。
	Base64   string
	MimeType string
	// Text は画像と一緒に返ってきたテキストパーツです (無い場合は空)。
	Text string
}

// HasImage は画像データを保持しているかを返します。
func (r *ImageResponse) HasImage() bool {
	return r != nil && (r.Base64 != "" || len(r.Data) > 0)
}

// DataURI は生成画像を MIME タイプ mimeType の Data URI に包みます。
// Base64 があればデコードせずそのまま使います。
func (r *ImageResponse) DataURI(mimeType string) DataURI {
	if r.Base64 != "" {
		return NewDataURIFromBase64(mimeType, r.Base64)
	}
	return NewDataURI(mimeType, r.Data)
}

// Outcome は非同期生成タスクの結果です。Err が nil の場合のみ Image が有効です。
type Outcome struct {
	Image DataURI
	Err   error
}
