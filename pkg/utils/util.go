package utils

import "unicode/utf8"

// maskMinRunes 未満のキーは全体を伏せる。前後 4 文字ずつ残しても半分以上が隠れる長さ。
const maskMinRunes = 16

// MaskAPIKey は API キーの先頭と末尾 4 文字だけを残して伏せ字にします。
// 短いキーは全体を伏せます。
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	runes := []rune(key)
	if len(runes) < maskMinRunes {
		return "****"
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}

// TruncateForLog は長い文字列をログ用に max 文字 (rune 数) へ切り詰めます。
// マルチバイト文字の途中では切りません。
func TruncateForLog(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
