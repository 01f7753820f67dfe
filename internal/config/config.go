package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 認証情報の保存方式
const (
	CredentialFile   = "file"
	CredentialSQLite = "sqlite"
	CredentialMemory = "memory"
)

// 通信方式
const (
	TransportREST = "rest"
	TransportSDK  = "sdk"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	// Gemini
	Model          string
	BaseURL        string
	Transport      string
	RequestTimeout time.Duration

	// 認証情報
	CredentialBackend string
	CredentialPath    string

	// 出力先
	OutputDir        string
	OutputS3Bucket   string
	OutputS3Prefix   string
	OutputS3Region   string
	OutputS3Endpoint string
	OutputS3Access   string
	OutputS3Secret   string
	DownloadPrefix   string

	// 元画像の正規化
	NormalizeSource bool
	SourceMaxDim    int
	SourceQuality   int

	// ログ
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
}

// UseS3 は S3 への出力が設定されているかを返します。
func (c *Config) UseS3() bool {
	return c.OutputS3Bucket != ""
}

type env struct {
	dotenv map[string]string
	errs   []error
}

// Load は環境変数から設定を読み込みます。
// envFiles を省略した場合はカレントディレクトリの .env を (存在すれば) 参照します。
// 環境変数が .env の値より優先されます。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	e := &env{dotenv: map[string]string{}}
	for _, f := range envFiles {
		values, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s の読み込みに失敗しました: %w", f, err)
		}
		for k, v := range values {
			if _, ok := e.dotenv[k]; !ok {
				e.dotenv[k] = v
			}
		}
	}

	cfg := &Config{
		Model:          e.getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp-image-generation"),
		BaseURL:        e.getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		Transport:      strings.ToLower(e.getEnv("GEMINI_TRANSPORT", TransportREST)),
		RequestTimeout: time.Duration(e.getEnvInt("REQUEST_TIMEOUT_SECONDS", 0)) * time.Second,

		CredentialBackend: strings.ToLower(e.getEnv("CREDENTIAL_BACKEND", CredentialFile)),
		CredentialPath:    e.getEnv("CREDENTIAL_PATH", ""),

		OutputDir:        e.getEnv("OUTPUT_DIR", "."),
		OutputS3Bucket:   e.getEnv("OUTPUT_S3_BUCKET", ""),
		OutputS3Prefix:   e.getEnv("OUTPUT_S3_PREFIX", ""),
		OutputS3Region:   e.getEnv("OUTPUT_S3_REGION", ""),
		OutputS3Endpoint: e.getEnv("OUTPUT_S3_ENDPOINT", ""),
		OutputS3Access:   e.getEnv("OUTPUT_S3_ACCESS_KEY", ""),
		OutputS3Secret:   e.getEnv("OUTPUT_S3_SECRET_KEY", ""),
		DownloadPrefix:   e.getEnv("DOWNLOAD_PREFIX", "gemini-generated"),

		NormalizeSource: e.getEnvBool("SOURCE_NORMALIZE_JPEG", false),
		SourceMaxDim:    e.getEnvInt("SOURCE_MAX_DIMENSION", 0),
		SourceQuality:   e.getEnvInt("SOURCE_JPEG_QUALITY", 90),

		LogLevel:  strings.ToLower(e.getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(e.getEnv("LOG_FORMAT", "text")),
	}

	switch cfg.Transport {
	case TransportREST, TransportSDK:
	default:
		e.fail("GEMINI_TRANSPORT", cfg.Transport, "rest または sdk を指定してください")
	}
	switch cfg.CredentialBackend {
	case CredentialFile, CredentialSQLite, CredentialMemory:
	default:
		e.fail("CREDENTIAL_BACKEND", cfg.CredentialBackend, "file, sqlite, memory のいずれかを指定してください")
	}
	if cfg.RequestTimeout < 0 {
		e.fail("REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeout.String(), "0 以上を指定してください")
	}
	if cfg.SourceMaxDim < 0 {
		e.fail("SOURCE_MAX_DIMENSION", strconv.Itoa(cfg.SourceMaxDim), "0 以上を指定してください")
	}
	if cfg.SourceQuality < 1 || cfg.SourceQuality > 100 {
		e.fail("SOURCE_JPEG_QUALITY", strconv.Itoa(cfg.SourceQuality), "1 から 100 の範囲で指定してください")
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		e.fail("LOG_LEVEL", cfg.LogLevel, "debug, info, warn, error のいずれかを指定してください")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		e.fail("LOG_FORMAT", cfg.LogFormat, "text または json を指定してください")
	}

	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	return cfg, nil
}

func (e *env) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := e.dotenv[key]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (e *env) getEnv(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (e *env) getEnvInt(key string, defaultValue int) int {
	value, ok := e.lookup(key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		e.fail(key, value, "整数を指定してください")
		return defaultValue
	}
	return i
}

func (e *env) getEnvBool(key string, defaultValue bool) bool {
	value, ok := e.lookup(key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
		e.fail(key, value, "true または false を指定してください")
		return defaultValue
	}
	return b
}

func (e *env) fail(key, value, hint string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q は不正です: %s", key, value, hint))
}
