package imagesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

const maxRedirects = 10

// HTTPFetcher は *http.Client を使って URL の中身を取得する HTTPClient です。
// リダイレクト先も IsSafeURL で検証します。
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher は client を使う HTTPFetcher を返します。nil なら http.DefaultClient です。
// client はコピーして使うので、呼び出し元の CheckRedirect は変更しません。
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	c := *client
	c.CheckRedirect = checkRedirect
	return &HTTPFetcher{client: &c}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("リダイレクトが多すぎます (%d 回)", len(via))
	}
	if safe, err := IsSafeURL(req.URL.String()); err != nil || !safe {
		return fmt.Errorf("リダイレクト先が安全ではありません (%s): %w", req.URL.Redacted(), err)
	}
	return nil
}

// NewSafeTransport は制限されたアドレスへの接続を拒否する *http.Transport を返します。
// 接続直前に実際の IP を検証するため、IsSafeURL の名前解決後に DNS の応答が
// 変わる場合 (DNS rebinding) も防げます。
func NewSafeTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl,
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}

func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return errors.New("接続先のIPを判別できません: " + host)
	}
	return checkIP(ip)
}

// FetchBytes は GET した本文を返します。2xx 以外はエラーです。
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	data, _, err := f.FetchContent(ctx, url)
	return data, err
}

// FetchContent は GET した本文とレスポンスの Content-Type を返します。
func (f *HTTPFetcher) FetchContent(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
