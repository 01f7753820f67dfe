package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter は S3 の PutObject を抽象化したインターフェースです。*s3.Client が満たします。
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config は S3 互換ストレージの接続設定です。
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint を指定すると S3 互換サービス (MinIO など) に接続します。
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Sink は生成画像を S3 バケットにアップロードします。
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Sink は ObjectPutter を注入して S3Sink を初期化します。
func NewS3Sink(client ObjectPutter, bucket, prefix string) (*S3Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}, nil
}

// NewS3SinkFromConfig は AWS の設定を読み込んで S3 クライアントを作成します。
// AccessKey が空の場合は既定の認証チェーンを使います。
func NewS3SinkFromConfig(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("AWS 設定の読み込みに失敗しました: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Sink(client, cfg.Bucket, cfg.Prefix)
}

func (s *S3Sink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		slog.ErrorContext(ctx, "S3 へのアップロードに失敗しました", "bucket", s.bucket, "key", key, "error", err)
		return "", fmt.Errorf("S3 へのアップロードに失敗しました: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	slog.InfoContext(ctx, "画像をアップロードしました", "location", location, "size", len(data))
	return location, nil
}
