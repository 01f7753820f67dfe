package domain

import "errors"

// エラーメッセージはそのままユーザー向け通知に使われます。
var (
	ErrMissingAPIKey = errors.New("Please enter your Gemini API key")
	ErrMissingImage  = errors.New("Please upload an image")
	ErrMissingPrompt = errors.New("Please enter a prompt")

	// ErrNotImageFile は画像以外のファイルが選択されたことを示します。
	ErrNotImageFile = errors.New("Please select an image file")

	// ErrNoImage はレスポンスに画像パーツが含まれていなかったことを示します。
	ErrNoImage = errors.New("No image in the response")

	// ErrGenerationInFlight は生成中に再度トリガーされたことを示します。
	ErrGenerationInFlight = errors.New("Image generation is already in progress")
)

// FallbackErrorMessage はサーバーがエラーメッセージを返さなかった場合の文言です。
const FallbackErrorMessage = "Failed to generate image"

// Messenger はユーザー向けの短いメッセージを持つエラーです。
type Messenger interface {
	UserMessage() string
}

// UserMessage はエラーから通知用の文言を取り出します。
// Messenger を実装するエラーがチェーン内にあればその文言、なければ err.Error() を返します。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var m Messenger
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	for _, sentinel := range []error{ErrMissingAPIKey, ErrMissingImage, ErrMissingPrompt, ErrNotImageFile, ErrNoImage, ErrGenerationInFlight} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
