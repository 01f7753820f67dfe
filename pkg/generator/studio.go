package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shouni/gemini-image-studio/pkg/adapters"
	"github.com/shouni/gemini-image-studio/pkg/credential"
	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/export"
	"github.com/shouni/gemini-image-studio/pkg/utils"
)

const (
	// DefaultDownloadPrefix はダウンロードファイル名の既定のプレフィックスです。
	DefaultDownloadPrefix = "gemini-generated"

	successMessage = "Image successfully generated!"
	apiKeySaved    = "API key saved"
)

// Studio は API キー、元画像、プロンプトを束ねて画像生成を実行するオーケストレーターです。
// 同時に実行中の生成リクエストは常に1つまでです。
type Studio struct {
	transformer adapters.Transformer
	store       credential.Store
	source      ImageSource
	sink        export.Sink
	notifier    Notifier

	downloadPrefix string
	timeout        time.Duration
	now            func() time.Time

	mu        sync.Mutex
	apiKey    string
	prompt    string
	status    domain.Status
	generated domain.DataURI
	lastErr   error
}

// Option は Studio の設定を変更します。
type Option func(*Studio)

// WithSink はダウンロード先を設定します。
func WithSink(sink export.Sink) Option {
	return func(s *Studio) { s.sink = sink }
}

// WithNotifier は通知先を設定します。
func WithNotifier(n Notifier) Option {
	return func(s *Studio) { s.notifier = n }
}

// WithDownloadPrefix はダウンロードファイル名のプレフィックスを設定します。
func WithDownloadPrefix(prefix string) Option {
	return func(s *Studio) {
		if prefix != "" {
			s.downloadPrefix = prefix
		}
	}
}

// WithClock はファイル名に使う時刻の取得元を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(s *Studio) { s.now = now }
}

// WithRequestTimeout は1回の生成リクエストのタイムアウトを設定します。0 はタイムアウトなしです。
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Studio) { s.timeout = d }
}

// NewStudio は依存関係を注入して Studio を初期化します。
func NewStudio(transformer adapters.Transformer, store credential.Store, source ImageSource, opts ...Option) (*Studio, error) {
	if transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store (credential.Store) is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source (ImageSource) is required")
	}

	s := &Studio{
		transformer:    transformer,
		store:          store,
		source:         source,
		notifier:       nopNotifier{},
		downloadPrefix: DefaultDownloadPrefix,
		now:            time.Now,
		status:         domain.StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoadAPIKey は保存済みの API キーを読み込みます。保存されていなければ現在値を維持します。
func (s *Studio) LoadAPIKey(ctx context.Context) (string, error) {
	key, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("API キーの読み込みに失敗しました: %w", err)
	}
	if key == "" {
		return s.APIKey(), nil
	}

	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()

	slog.DebugContext(ctx, "保存済みの API キーを読み込みました", "key", utils.MaskAPIKey(key))
	return key, nil
}

// SetAPIKey は API キーを設定します。永続化はしません。
func (s *Studio) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// APIKey は現在の API キーを返します。
func (s *Studio) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// SaveAPIKey は現在の API キーを永続化します。キーが空の場合は何もしません。
func (s *Studio) SaveAPIKey(ctx context.Context) error {
	key := s.APIKey()
	if key == "" {
		return nil
	}
	if err := s.store.Save(ctx, key); err != nil {
		err = fmt.Errorf("API キーの保存に失敗しました: %w", err)
		s.notifier.Error(ctx, err.Error())
		return err
	}
	s.notifier.Success(ctx, apiKeySaved)
	return nil
}

// SetPrompt はプロンプトを設定します。
func (s *Studio) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

// Prompt は現在のプロンプトを返します。
func (s *Studio) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Source は現在の元画像を返します。
func (s *Studio) Source() domain.DataURI {
	return s.source.Current()
}

// Status は生成処理の状態を返します。
func (s *Studio) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// GeneratedImage は直近に生成された画像を返します。未生成なら空です。
func (s *Studio) GeneratedImage() domain.DataURI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}

// LastError は直近の生成失敗の原因を返します。
func (s *Studio) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// GenerateAsync は Generate をゴルーチンで実行し、結果を1件だけ流すチャネルを返します。
func (s *Studio) GenerateAsync(ctx context.Context) <-chan domain.Outcome {
	ch := make(chan domain.Outcome, 1)
	go func() {
		defer close(ch)
		img, err := s.generate(ctx)
		if err != nil {
			ch <- domain.Outcome{Err: err}
			return
		}
		ch <- domain.Outcome{Image: img}
	}()
	return ch
}

// Generate は元画像とプロンプトを Gemini に送り、生成画像を保持します。
// 入力が揃っていない場合は通知だけを行い、通信も状態遷移もしません。
func (s *Studio) Generate(ctx context.Context) error {
	_, err := s.generate(ctx)
	return err
}

// generate は Generate の本体で、このリクエストで生成された画像を返します。
func (s *Studio) generate(ctx context.Context) (domain.DataURI, error) {
	req, apiKey, err := s.begin(ctx)
	if err != nil {
		return "", err
	}

	requestID := uuid.NewString()
	logger := slog.With("request_id", requestID)
	logger.InfoContext(ctx, "画像生成を開始します", "prompt", utils.TruncateForLog(req.Prompt, 80))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.transformer.Transform(ctx, apiKey, req)
	if err == nil && !resp.HasImage() {
		err = domain.ErrNoImage
	}
	if err != nil {
		logger.ErrorContext(ctx, "画像生成に失敗しました", "error", err, "elapsed", time.Since(start))
		s.fail(err)
		s.notifier.Error(ctx, domain.UserMessage(err))
		return "", fmt.Errorf("画像生成エラー: %w", err)
	}

	// サーバーが返した base64 はそのまま包む
	img := resp.DataURI(domain.GeneratedImageMIMEType)

	s.mu.Lock()
	s.generated = img
	s.status = domain.StatusSuccess
	s.lastErr = nil
	s.mu.Unlock()

	logger.InfoContext(ctx, "画像生成が完了しました", "size", len(resp.Data), "elapsed", time.Since(start))
	s.notifier.Success(ctx, successMessage)
	return img, nil
}

// begin は入力を検証し、問題なければ実行中状態へ遷移します。
func (s *Studio) begin(ctx context.Context) (domain.TransformRequest, string, error) {
	source := s.source.Current()

	s.mu.Lock()
	if s.status == domain.StatusInFlight {
		s.mu.Unlock()
		return domain.TransformRequest{}, "", domain.ErrGenerationInFlight
	}

	var verr error
	switch {
	case s.apiKey == "":
		verr = domain.ErrMissingAPIKey
	case source.IsEmpty():
		verr = domain.ErrMissingImage
	case s.prompt == "":
		verr = domain.ErrMissingPrompt
	}
	if verr != nil {
		s.mu.Unlock()
		s.notifier.Error(ctx, verr.Error())
		return domain.TransformRequest{}, "", verr
	}

	req := domain.TransformRequest{
		Prompt:        s.prompt,
		ImagePayload:  source.Payload(),
		ImageMIMEType: domain.RequestImageMIMEType,
	}
	apiKey := s.apiKey
	s.generated = ""
	s.lastErr = nil
	s.status = domain.StatusInFlight
	s.mu.Unlock()

	return req, apiKey, nil
}

func (s *Studio) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = ""
	s.status = domain.StatusError
	s.lastErr = err
}

// Download は生成画像を Sink に保存し、保存先を返します。
// 生成画像が無い場合は何もせず空文字を返します。
func (s *Studio) Download(ctx context.Context) (string, error) {
	img := s.GeneratedImage()
	if img.IsEmpty() {
		return "", nil
	}
	if s.sink == nil {
		return "", fmt.Errorf("ダウンロード先が設定されていません")
	}

	data, err := img.Bytes()
	if err != nil {
		return "", fmt.Errorf("生成画像のデコードに失敗しました: %w", err)
	}

	name := s.DownloadName()
	location, err := s.sink.Save(ctx, name, domain.GeneratedImageMIMEType, data)
	if err != nil {
		return "", fmt.Errorf("生成画像の保存に失敗しました: %w", err)
	}
	return location, nil
}

// DownloadName は現在時刻のエポックミリ秒を含むファイル名を返します。
func (s *Studio) DownloadName() string {
	return fmt.Sprintf("%s-%d.png", s.downloadPrefix, s.now().UnixMilli())
}
