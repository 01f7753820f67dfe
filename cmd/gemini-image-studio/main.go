package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/gemini-image-studio/internal/config"
	"github.com/shouni/gemini-image-studio/pkg/adapters"
	"github.com/shouni/gemini-image-studio/pkg/credential"
	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/export"
	"github.com/shouni/gemini-image-studio/pkg/generator"
	"github.com/shouni/gemini-image-studio/pkg/imagesource"
	"github.com/shouni/gemini-image-studio/pkg/utils"
)

const usage = `Usage:
  gemini-image-studio key set <api-key>
  gemini-image-studio key show
  gemini-image-studio generate -image <path|url> -prompt <text> [-out dir] [-key api-key]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "設定エラー: %v\n", err)
		return 1
	}
	config.NewLogger(cfg, stderr)

	switch args[0] {
	case "key":
		err = runKey(ctx, cfg, args[1:], stdout)
	case "generate":
		err = runGenerate(ctx, cfg, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		err = fmt.Errorf("unknown command: %s", args[0])
	}

	if err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprint(stderr, usage)
		}
		slog.ErrorContext(ctx, "コマンドが失敗しました", "command", args[0], "error", err)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func runKey(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usageError{"key: subcommand is required"}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	switch args[0] {
	case "set":
		if len(args) != 2 || args[1] == "" {
			return usageError{"key set: api key is required"}
		}
		if err := store.Save(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "API key saved")
	case "show":
		key, err := store.Load(ctx)
		if err != nil {
			return err
		}
		if key == "" {
			fmt.Fprintln(stdout, "(not set)")
			return nil
		}
		fmt.Fprintln(stdout, utils.MaskAPIKey(key))
	default:
		return usageError{"key: unknown subcommand " + args[0]}
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	imageArg := fs.String("image", "", "元画像のパスまたは URL")
	prompt := fs.String("prompt", "", "変換内容を指示するプロンプト")
	outDir := fs.String("out", "", "出力先ディレクトリ (省略時は OUTPUT_DIR または S3)")
	apiKey := fs.String("key", "", "API キー (省略時は保存済みのキー)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sink, err := newSink(ctx, cfg, *outDir)
	if err != nil {
		return err
	}

	httpClient := &http.Client{}
	transformer, err := newTransformer(cfg, httpClient)
	if err != nil {
		return err
	}

	var captureOpts []imagesource.Option
	if cfg.NormalizeSource {
		captureOpts = append(captureOpts, imagesource.WithNormalizer(imagesource.Normalizer{
			MaxDimension: cfg.SourceMaxDim,
			Quality:      cfg.SourceQuality,
		}))
	}
	capture := imagesource.NewCapture(captureOpts...)
	notifier := generator.NewSlogNotifier(stderr)

	studio, err := generator.NewStudio(transformer, store, capture,
		generator.WithSink(sink),
		generator.WithNotifier(notifier),
		generator.WithDownloadPrefix(cfg.DownloadPrefix),
		generator.WithRequestTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return err
	}
	studio.SetPrompt(*prompt)

	// 保存済みキーの読み込みと元画像の読み込みは互いに独立している
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := studio.LoadAPIKey(gctx)
		return err
	})
	if *imageArg != "" {
		g.Go(func() error {
			f, err := openImage(gctx, *imageArg)
			if err != nil {
				return err
			}
			res := <-capture.Select(gctx, f)
			if res.Err != nil {
				notifier.Error(gctx, domain.UserMessage(res.Err))
			}
			return res.Err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if *apiKey != "" {
		studio.SetAPIKey(*apiKey)
	}

	if err := studio.Generate(ctx); err != nil {
		return err
	}

	location, err := studio.Download(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, location)
	return nil
}

func openImage(ctx context.Context, arg string) (imagesource.File, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		// 利用者が渡した URL は接続先の IP まで検証する
		fetcher := imagesource.NewHTTPFetcher(&http.Client{Transport: imagesource.NewSafeTransport()})
		return imagesource.FromURL(ctx, fetcher, arg)
	}
	return imagesource.FromPath(arg), nil
}

func openStore(ctx context.Context, cfg *config.Config) (credential.Store, func(), error) {
	noop := func() {}

	switch cfg.CredentialBackend {
	case config.CredentialMemory:
		return credential.NewMemoryStore(""), noop, nil
	case config.CredentialSQLite:
		path := cfg.CredentialPath
		if path == "" {
			def, err := credential.DefaultFilePath()
			if err != nil {
				return nil, noop, err
			}
			path = filepath.Join(filepath.Dir(def), "credentials.db")
		}
		store, err := credential.NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		path := cfg.CredentialPath
		if path == "" {
			def, err := credential.DefaultFilePath()
			if err != nil {
				return nil, noop, err
			}
			path = def
		}
		store, err := credential.NewFileStore(path)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}

func newSink(ctx context.Context, cfg *config.Config, outDir string) (export.Sink, error) {
	if outDir != "" {
		return export.NewDirSink(outDir), nil
	}
	if cfg.UseS3() {
		return export.NewS3SinkFromConfig(ctx, export.S3Config{
			Bucket:    cfg.OutputS3Bucket,
			Prefix:    cfg.OutputS3Prefix,
			Region:    cfg.OutputS3Region,
			Endpoint:  cfg.OutputS3Endpoint,
			AccessKey: cfg.OutputS3Access,
			SecretKey: cfg.OutputS3Secret,
		})
	}
	return export.NewDirSink(cfg.OutputDir), nil
}

func newTransformer(cfg *config.Config, httpClient *http.Client) (adapters.Transformer, error) {
	core := adapters.NewGeminiImageCore()
	if cfg.Transport == config.TransportSDK {
		return adapters.NewSDKClient(httpClient, core, cfg.BaseURL, cfg.Model)
	}
	return adapters.NewRESTClient(httpClient, core, cfg.BaseURL, cfg.Model)
}
