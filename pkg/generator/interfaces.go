package generator

import (
	"context"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

// Notifier はユーザーへの一時的な通知 (トースト) を表示します。
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

// ImageSource は現在選択されている元画像を提供します。imagesource.Capture が満たします。
type ImageSource interface {
	Current() domain.DataURI
}
