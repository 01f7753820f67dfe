package imagesource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// HTTPClient は URL から画像バイト列を取得するクライアントです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ContentFetcher は本文と一緒にレスポンスの Content-Type も返す HTTPClient です。
// FromURL は client がこれを実装していれば申告された型を優先します。
type ContentFetcher interface {
	HTTPClient
	FetchContent(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// File は選択された1件の入力ファイルです。
// MIMEType はファイル選択時に申告された型で、内容の判定には使いません。
type File struct {
	Name     string
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

// FromPath はローカルファイルを File に変換します。MIME タイプは拡張子から決まります。
func FromPath(p string) File {
	return File{
		Name:     filepath.Base(p),
		MIMEType: mimeTypeFromName(p),
		Open: func() (io.ReadCloser, error) {
			return os.Open(p)
		},
	}
}

// FromBytes はメモリ上のデータを File として扱います。
func FromBytes(name, mimeType string, data []byte) File {
	return File{
		Name:     name,
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromURL は URL の画像をダウンロードして File に変換します。
// SSRF 対策として IsSafeURL を通らない URL は拒否します。
func FromURL(ctx context.Context, client HTTPClient, rawURL string) (File, error) {
	if client == nil {
		return File{}, fmt.Errorf("httpClient is required")
	}
	if safe, err := IsSafeURL(rawURL); err != nil || !safe {
		return File{}, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}

	var (
		data     []byte
		declared string
		err      error
	)
	if cf, ok := client.(ContentFetcher); ok {
		data, declared, err = cf.FetchContent(ctx, rawURL)
	} else {
		data, err = client.FetchBytes(ctx, rawURL)
	}
	if err != nil {
		return File{}, fmt.Errorf("画像のダウンロードに失敗しました: %w", err)
	}

	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	return FromBytes(name, resolveMIMEType(name, declared, data), data), nil
}

// resolveMIMEType はレスポンスの Content-Type、拡張子、内容の順で型を決めます。
// application/octet-stream は申告なしとして扱います。
func resolveMIMEType(name, declared string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if t := mimeTypeFromName(name); t != "" {
		return t
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}

func mimeTypeFromName(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return t
	}
	return mediaType
}

// IsSafeURL は、SSRF (Server-Side Request Forgery) 対策として URL を検証します。
// 許可されたスキーム (http, https) かつ、プライベートIPやループバックアドレスを
// ターゲットにしていないことを確認します。
func IsSafeURL(rawURL string) (bool, error) {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLパース失敗: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, fmt.Errorf("不許可スキーム: %s", parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolved, err := net.LookupIP(host)
		if err != nil {
			return false, fmt.Errorf("ホスト '%s' の名前解決に失敗しました: %w", host, err)
		}
		ips = resolved
	}

	if len(ips) == 0 {
		return false, fmt.Errorf("IPが見つかりません")
	}

	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return false, err
		}
	}

	return true, nil
}

func checkIP(ip net.IP) error {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("制限されたネットワークへのアクセスを検知: %s", ip.String())
	}
	return nil
}
