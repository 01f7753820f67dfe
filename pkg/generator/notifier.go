package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// SlogNotifier は通知を端末に表示し、同時にログへ記録します。
type SlogNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewSlogNotifier は out に通知を書き出す SlogNotifier を返します。nil なら標準エラー出力です。
func NewSlogNotifier(out io.Writer) *SlogNotifier {
	if out == nil {
		out = os.Stderr
	}
	return &SlogNotifier{out: out}
}

func (n *SlogNotifier) Success(ctx context.Context, message string) {
	slog.InfoContext(ctx, "通知", "level", "success", "message", message)
	n.print("✓ " + message)
}

func (n *SlogNotifier) Error(ctx context.Context, message string) {
	slog.WarnContext(ctx, "通知", "level", "error", "message", message)
	n.print("✗ " + message)
}

func (n *SlogNotifier) print(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.out, line)
}

type nopNotifier struct{}

func (nopNotifier) Success(context.Context, string) {}
func (nopNotifier) Error(context.Context, string)   {}
