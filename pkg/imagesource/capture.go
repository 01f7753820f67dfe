package imagesource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
)

// ErrNotImage は申告された MIME タイプが画像ではないことを示します。
var ErrNotImage = domain.ErrNotImageFile

// Result は Select の非同期結果です。
type Result struct {
	Image domain.DataURI
	Err   error
}

// Normalizer は読み込んだ画像を送信前に変換する設定です。
type Normalizer struct {
	// MaxDimension が 0 より大きい場合、長辺をこの値に収めます。
	MaxDimension int
	Quality      int
}

// Capture は現在選択されている元画像を保持します。
type Capture struct {
	mu         sync.RWMutex
	current    domain.DataURI
	normalizer *Normalizer
}

// Option は Capture の設定を変更します。
type Option func(*Capture)

// WithNormalizer は読み込み時に JPEG へ正規化するよう設定します。
func WithNormalizer(n Normalizer) Option {
	return func(c *Capture) {
		if n.Quality <= 0 {
			n.Quality = 90
		}
		c.normalizer = &n
	}
}

// NewCapture は空の Capture を返します。
func NewCapture(opts ...Option) *Capture {
	c := &Capture{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current は現在の元画像を返します。未選択なら空です。
func (c *Capture) Current() domain.DataURI {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Remove は元画像の選択を解除します。
func (c *Capture) Remove() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = ""
}

// Select は Load をゴルーチンで実行し、結果を1件だけ流すチャネルを返します。
func (c *Capture) Select(ctx context.Context, f File) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		img, err := c.Load(ctx, f)
		ch <- Result{Image: img, Err: err}
	}()
	return ch
}

// Load はファイルを読み込み、Data URI として現在値に設定します。
// 画像ではない、または読み込めない場合は現在値を変更せずにエラーを返します。
func (c *Capture) Load(ctx context.Context, f File) (domain.DataURI, error) {
	if !strings.HasPrefix(f.MIMEType, "image/") {
		slog.WarnContext(ctx, "画像ではないファイルが選択されました", "name", f.Name, "mime_type", f.MIMEType)
		return "", fmt.Errorf("%s: %w", f.Name, ErrNotImage)
	}
	if f.Open == nil {
		return "", fmt.Errorf("%s: ファイルを開けません", f.Name)
	}

	data, err := readAll(ctx, f)
	if err != nil {
		return "", fmt.Errorf("ファイルの読み込みに失敗しました (%s): %w", f.Name, err)
	}

	mimeType := f.MIMEType
	if c.normalizer != nil {
		normalized, err := imgutil.FitToJPEG(data, c.normalizer.MaxDimension, c.normalizer.Quality)
		if err != nil {
			// デコードできない画像は申告どおりのまま送る
			slog.WarnContext(ctx, "画像の正規化に失敗したため元データを使用します", "name", f.Name, "error", err)
		} else {
			data = normalized
			mimeType = domain.RequestImageMIMEType
		}
	}

	img := domain.NewDataURI(mimeType, data)

	c.mu.Lock()
	c.current = img
	c.mu.Unlock()

	slog.DebugContext(ctx, "元画像を読み込みました", "name", f.Name, "mime_type", mimeType, "bytes", len(data))
	return img, nil
}

func readAll(ctx context.Context, f File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
