package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/reference"
	"resume-screening-go/internal/tracing"
	"resume-screening-go/internal/types"
)

var minioTracer = otel.Tracer("resume-screening-go/storage/minio")

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	PutBytes(ctx context.Context, bucket, objectKey string, data []byte, contentType string) error
	GetBytes(ctx context.Context, bucket, objectKey string) ([]byte, error)
	RemoveObject(ctx context.Context, bucket, objectKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供原始简历、批量任务文件与训练语料的对象存储
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	batchBucket    string
	corpusBucket   string
	log            zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint 不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: cfg.OriginalsBucket,
		batchBucket:    cfg.BatchBucket,
		corpusBucket:   cfg.CorpusBucket,
		log:            logger.Component("minio"),
	}

	for _, bucket := range []string{m.originalBucket, m.batchBucket, m.corpusBucket} {
		if err := m.ensureBucketExists(ctx, bucket); err != nil {
			return nil, err
		}
	}

	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalBucket, "expire-originals", cfg.OriginalFileExpireDays); err != nil {
			m.log.Warn().Err(err).Str("bucket", m.originalBucket).Msg("设置生命周期规则失败")
		}
	}

	m.log.Info().Str("endpoint", cfg.Endpoint).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName string) error {
	if bucketName == "" {
		return nil
	}
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: m.cfg.Location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.log.Info().Str("bucket", bucketName).Msg("存储桶已创建")
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, cfg)
}

// PutBytes 上传内存中的对象
func (m *MinIO) PutBytes(ctx context.Context, bucket, objectKey string, data []byte, contentType string) error {
	ctx, span := minioTracer.Start(ctx, "MinIO.PutObject", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.bucket", bucket),
		attribute.String("storage.object_key", tracing.SafeKey(objectKey)),
		attribute.Int("storage.object_size", len(data)),
	)

	_, err := m.client.PutObject(ctx, bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return fmt.Errorf("上传对象 %s/%s 失败: %w", bucket, objectKey, err)
	}
	return nil
}

// GetBytes 下载对象的全部内容
func (m *MinIO) GetBytes(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.GetObject", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.bucket", bucket),
		attribute.String("storage.object_key", tracing.SafeKey(objectKey)),
	)

	obj, err := m.client.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucket, objectKey, err)
	}
	span.SetAttributes(attribute.Int("storage.object_size", len(data)))
	return data, nil
}

// RemoveObject 删除对象
func (m *MinIO) RemoveObject(ctx context.Context, bucket, objectKey string) error {
	return m.client.RemoveObject(ctx, bucket, objectKey, minio.RemoveObjectOptions{})
}

// UploadOriginal 保存一次同步分析上传的原始文件，返回对象键
func (m *MinIO) UploadOriginal(ctx context.Context, analysisID, filename string, data []byte) (string, error) {
	key := OriginalObjectKey(analysisID, filename, time.Now())
	if err := m.PutBytes(ctx, m.originalBucket, key, data, ContentTypeFor(filename)); err != nil {
		return "", err
	}
	return key, nil
}

// UploadBatchFile 保存异步批量任务中的一个文件，返回对象键
func (m *MinIO) UploadBatchFile(ctx context.Context, batchID string, index int, filename string, data []byte) (string, error) {
	key := BatchObjectKey(batchID, index, filename)
	if err := m.PutBytes(ctx, m.batchBucket, key, data, ContentTypeFor(filename)); err != nil {
		return "", err
	}
	return key, nil
}

// GetBatchFile 读取批量任务中的文件
func (m *MinIO) GetBatchFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.GetBytes(ctx, m.batchBucket, objectKey)
}

// RemoveBatchFiles 删除批次前缀下的所有文件
func (m *MinIO) RemoveBatchFiles(ctx context.Context, batchID string) error {
	objects := m.client.ListObjects(ctx, m.batchBucket, minio.ListObjectsOptions{
		Prefix:    batchID + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("列出批次对象失败: %w", obj.Err)
		}
		if err := m.RemoveObject(ctx, m.batchBucket, obj.Key); err != nil {
			return fmt.Errorf("删除批次对象 %s 失败: %w", obj.Key, err)
		}
	}
	return nil
}

// UploadCorpus 上传 training_data.json
func (m *MinIO) UploadCorpus(ctx context.Context, objectKey string, data []byte) error {
	return m.PutBytes(ctx, m.corpusBucket, objectKey, data, "application/json")
}

// DownloadCorpus 下载训练语料对象
func (m *MinIO) DownloadCorpus(ctx context.Context, objectKey string) ([]byte, error) {
	return m.GetBytes(ctx, m.corpusBucket, objectKey)
}

// OriginalObjectKey 原始文件对象键: yyyy/mm/dd/{id}{ext}
func OriginalObjectKey(analysisID, filename string, at time.Time) string {
	return path.Join(at.Format("2006/01/02"), analysisID+strings.ToLower(filepath.Ext(filename)))
}

// BatchObjectKey 批量文件对象键: {batchID}/{index:03d}_{filename}
func BatchObjectKey(batchID string, index int, filename string) string {
	return fmt.Sprintf("%s/%03d_%s", batchID, index, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', '?', '#', '%', '*', ':', '|', '"', '<', '>':
			return '_'
		}
		return r
	}, name)
}

// ContentTypeFor 根据扩展名返回内容类型
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// MinIOCorpusLoader 从语料存储桶加载 training_data.json
type MinIOCorpusLoader struct {
	Store     *MinIO
	ObjectKey string
}

// Load 读取全部训练语料
func (l MinIOCorpusLoader) Load(ctx context.Context) ([]types.TrainingSample, error) {
	if l.Store == nil {
		return nil, fmt.Errorf("MinIO未初始化")
	}
	data, err := l.Store.DownloadCorpus(ctx, l.ObjectKey)
	if err != nil {
		return nil, err
	}
	return reference.DecodeCorpus(data)
}
