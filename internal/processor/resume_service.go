package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-screening-go/internal/classifier"
	"resume-screening-go/internal/config"
	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/storage"
	"resume-screening-go/internal/storage/models"
	"resume-screening-go/internal/tracing"
	"resume-screening-go/internal/types"
)

// 服务层错误
var (
	ErrAsyncUnavailable = errors.New("异步批量处理未启用")
	ErrBatchNotFound    = errors.New("批量任务不存在")
	ErrTrainingBusy     = errors.New("模型正在训练中")
)

// 存储组件满足服务层接口
var (
	_ ResultCache  = (*storage.Redis)(nil)
	_ CorpusLoader = storage.MySQLCorpusLoader{}
	_ CorpusLoader = storage.MinIOCorpusLoader{}
	_ ObjectStore  = (*storage.MinIO)(nil)
	_ Repository   = (*storage.MySQL)(nil)
	_ BatchQueue   = (*storage.RabbitMQ)(nil)
	_ Locker       = (*storage.Redis)(nil)
)

// ObjectStore 简历文件的对象存储
type ObjectStore interface {
	UploadOriginal(ctx context.Context, analysisID, filename string, data []byte) (string, error)
	UploadBatchFile(ctx context.Context, batchID string, index int, filename string, data []byte) (string, error)
	GetBatchFile(ctx context.Context, objectKey string) ([]byte, error)
	RemoveBatchFiles(ctx context.Context, batchID string) error
}

// Repository 分析记录与批量任务的持久化
type Repository interface {
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord, events ...models.OutboxMessage) error
	CreateBatchJob(ctx context.Context, batchID string, total int) error
	MarkBatchProcessing(ctx context.Context, batchID string) error
	CompleteBatchJob(ctx context.Context, batchID string, result *types.BatchResult, records []models.AnalysisRecord, events []models.OutboxMessage) error
	GetBatchJob(ctx context.Context, batchID string) (*models.BatchJob, error)
}

// BatchQueue 批量任务消息队列
type BatchQueue interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
	StartConsumer(ctx context.Context, queueName string, prefetchCount, workers int, handler storage.MessageHandler) (<-chan struct{}, error)
}

// Locker 分布式锁
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// BatchMetrics 批量任务指标
type BatchMetrics interface {
	ObserveBatch(succeeded, failed int)
}

// UploadedFile 上传的单个文件
type UploadedFile struct {
	Filename string
	Data     []byte
	// Rejected 非空表示上传校验未通过，批量分析时记为该项失败
	Rejected error
}

// ResumeService 在分析编排器之上负责持久化、异步批量任务与模型训练协调。
// 所有存储依赖都是可选的，缺失时对应能力降级或返回 ErrAsyncUnavailable
type ResumeService struct {
	analyzer *SkillAnalyzer
	objects  ObjectStore
	repo     Repository
	queue    BatchQueue
	locker   Locker
	metrics  BatchMetrics
	mq       config.RabbitMQConfig
	log      zerolog.Logger

	training atomic.Bool
}

// ServiceOption ResumeService 选项
type ServiceOption func(*ResumeService)

// WithBatchMetrics 设置批量任务指标
func WithBatchMetrics(m BatchMetrics) ServiceOption {
	return func(s *ResumeService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithObjectStore 设置对象存储
func WithObjectStore(o ObjectStore) ServiceOption {
	return func(s *ResumeService) { s.objects = o }
}

// WithRepository 设置持久化仓库
func WithRepository(r Repository) ServiceOption {
	return func(s *ResumeService) { s.repo = r }
}

// WithBatchQueue 设置批量任务队列
func WithBatchQueue(q BatchQueue) ServiceOption {
	return func(s *ResumeService) { s.queue = q }
}

// WithLocker 设置分布式锁
func WithLocker(l Locker) ServiceOption {
	return func(s *ResumeService) { s.locker = l }
}

// NewResumeService 创建服务。store 中未初始化的组件不会被注入
func NewResumeService(analyzer *SkillAnalyzer, store *storage.Storage, mq config.RabbitMQConfig, opts ...ServiceOption) *ResumeService {
	s := &ResumeService{
		analyzer: analyzer,
		mq:       mq,
		log:      logger.Component("resume_service"),
	}
	// 避免把 nil 指针包装成非 nil 接口
	if store != nil {
		if store.MinIO != nil {
			s.objects = store.MinIO
		}
		if store.MySQL != nil {
			s.repo = store.MySQL
		}
		if store.RabbitMQ != nil {
			s.queue = store.RabbitMQ
		}
		if store.Redis != nil {
			s.locker = store.Redis
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyzer 返回底层分析编排器
func (s *ResumeService) Analyzer() *SkillAnalyzer {
	return s.analyzer
}

// AsyncEnabled 异步批量处理需要对象存储、数据库与消息队列
func (s *ResumeService) AsyncEnabled() bool {
	return s.objects != nil && s.repo != nil && s.queue != nil
}

// AnalyzeUpload 分析一份上传的简历，并尽力保存原始文件与分析记录。
// 持久化失败只记录日志，不影响返回的分析结果
func (s *ResumeService) AnalyzeUpload(ctx context.Context, file UploadedFile) (*types.AnalysisResult, error) {
	res, err := s.analyzer.AnalyzeDocument(ctx, types.DocumentInput{Name: file.Filename, Data: file.Data})
	if err != nil {
		return nil, err
	}
	if err := s.persistAnalysis(ctx, res, file.Data); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", res.ID).Msg("保存分析记录失败")
	}
	return res, nil
}

func (s *ResumeService) persistAnalysis(ctx context.Context, res *types.AnalysisResult, data []byte) error {
	var objectKey string
	if s.objects != nil {
		key, err := s.objects.UploadOriginal(ctx, res.ID, res.Filename, data)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", res.ID).Msg("上传原始简历失败")
		} else {
			objectKey = key
		}
	}
	if s.repo == nil {
		return nil
	}

	fingerprint := s.analyzer.Model().Fingerprint()
	record, err := storage.NewAnalysisRecord(res, fingerprint)
	if err != nil {
		return err
	}
	record.ObjectKey = objectKey

	event, err := s.completedEvent(res, "", fingerprint)
	if err != nil {
		return err
	}
	return s.repo.SaveAnalysis(ctx, &record, event)
}

func (s *ResumeService) completedEvent(res *types.AnalysisResult, batchID, fingerprint string) (models.OutboxMessage, error) {
	return storage.NewOutboxMessage(
		constants.AggregateAnalysis, res.ID, constants.EventAnalysisCompleted,
		s.mq.AnalysisExchange, s.mq.CompletedRoutingKey,
		storage.AnalysisCompletedEvent{
			AnalysisID:       res.ID,
			BatchID:          batchID,
			Filename:         res.Filename,
			Skills:           res.Skills,
			Score:            res.Score,
			Method:           string(res.Method),
			ModelFingerprint: fingerprint,
			CompletedAt:      time.Now(),
		},
	)
}

// AnalyzeBatch 同步分析一批上传文件
func (s *ResumeService) AnalyzeBatch(ctx context.Context, files []UploadedFile) *types.BatchResult {
	items := make([]types.BatchItem, len(files))
	docs := make([]types.DocumentInput, 0, len(files))
	positions := make([]int, 0, len(files))
	for i, f := range files {
		if f.Rejected != nil {
			items[i] = types.BatchItem{
				Index:     i,
				Filename:  f.Filename,
				Error:     f.Rejected.Error(),
				ErrorKind: ErrorKind(f.Rejected),
			}
			continue
		}
		docs = append(docs, types.DocumentInput{Name: f.Filename, Data: f.Data})
		positions = append(positions, i)
	}
	if len(docs) > 0 {
		analyzed := s.analyzer.BatchAnalyze(ctx, docs)
		for j, item := range analyzed.Results {
			item.Index = positions[j]
			items[positions[j]] = item
		}
	}

	out := summarizeBatch("", items)
	if s.metrics != nil {
		s.metrics.ObserveBatch(out.Succeeded, out.Failed)
	}
	return out
}

// SubmitBatch 上传批量文件、创建任务并投递消息，返回 queued 状态的批次
func (s *ResumeService) SubmitBatch(ctx context.Context, files []UploadedFile) (*types.BatchResult, error) {
	if !s.AsyncEnabled() {
		return nil, ErrAsyncUnavailable
	}
	if len(files) == 0 {
		return nil, NewInputError("submit_batch", "未提供文件")
	}

	batchID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "SubmitBatch", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.size", len(files)),
	))
	defer span.End()
	ctx = logger.WithBatchID(ctx, batchID)
	log := logger.Ctx(ctx)

	msg := storage.BatchAnalyzeMessage{
		BatchID:     batchID,
		SubmittedAt: time.Now(),
		Files:       make([]storage.BatchFileRef, 0, len(files)),
	}
	for i, f := range files {
		if f.Rejected != nil {
			msg.Files = append(msg.Files, storage.BatchFileRef{
				Index:     i,
				Filename:  f.Filename,
				Error:     f.Rejected.Error(),
				ErrorKind: ErrorKind(f.Rejected),
			})
			continue
		}
		key, err := s.objects.UploadBatchFile(ctx, batchID, i, f.Filename, f.Data)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeStorage)
			if rmErr := s.objects.RemoveBatchFiles(ctx, batchID); rmErr != nil {
				log.Warn().Err(rmErr).Msg("清理已上传的批量文件失败")
			}
			return nil, fmt.Errorf("上传批量文件 %s 失败: %w", f.Filename, err)
		}
		msg.Files = append(msg.Files, storage.BatchFileRef{Index: i, Filename: f.Filename, ObjectKey: key})
	}

	if err := s.repo.CreateBatchJob(ctx, batchID, len(files)); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("创建批量任务失败: %w", err)
	}
	if err := s.queue.PublishJSON(ctx, s.mq.AnalysisExchange, s.mq.BatchRoutingKey, msg, true); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return nil, fmt.Errorf("投递批量任务失败: %w", err)
	}

	log.Info().Int("files", len(files)).Msg("批量任务已提交")
	return &types.BatchResult{
		BatchID:      batchID,
		TotalResumes: len(files),
		Status:       types.BatchStatusQueued,
		Results:      []types.BatchItem{},
	}, nil
}

// HandleBatchMessage 消费一条批量任务消息。
// 返回 storage.Permanent 包装的错误时消息不会重新入队
func (s *ResumeService) HandleBatchMessage(ctx context.Context, body []byte) error {
	if s.repo == nil || s.objects == nil {
		return storage.Permanent(ErrAsyncUnavailable)
	}

	var msg storage.BatchAnalyzeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return storage.Permanent(fmt.Errorf("解析批量任务消息失败: %w", err))
	}
	if msg.BatchID == "" {
		return storage.Permanent(errors.New("批量任务消息缺少 batch_id"))
	}

	ctx, span := tracer.Start(ctx, "HandleBatchMessage", trace.WithAttributes(
		attribute.String("batch.id", msg.BatchID),
		attribute.Int("batch.size", len(msg.Files)),
	))
	defer span.End()
	ctx = logger.WithBatchID(ctx, msg.BatchID)
	log := logger.Ctx(ctx)

	if s.locker != nil {
		lockKey := fmt.Sprintf(constants.KeyBatchLock, msg.BatchID)
		owner, err := s.locker.AcquireLock(ctx, lockKey, constants.BatchLockTTL)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return fmt.Errorf("获取批量任务锁失败: %w", err)
		}
		if owner == "" {
			log.Info().Msg("批量任务正由其他消费者处理，跳过")
			return nil
		}
		defer func() {
			if _, err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, owner); err != nil {
				log.Warn().Err(err).Msg("释放批量任务锁失败")
			}
		}()
	}

	job, err := s.repo.GetBatchJob(ctx, msg.BatchID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Permanent(fmt.Errorf("%w: %s", ErrBatchNotFound, msg.BatchID))
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	if isTerminal(types.BatchStatus(job.Status)) {
		log.Info().Str("status", job.Status).Msg("批量任务已完成，忽略重复消息")
		return nil
	}
	if err := s.repo.MarkBatchProcessing(ctx, msg.BatchID); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}

	result := s.runBatch(ctx, msg)
	fingerprint := s.analyzer.Model().Fingerprint()
	records, events, err := s.batchRecords(msg, result, fingerprint)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return storage.Permanent(err)
	}
	if err := s.repo.CompleteBatchJob(ctx, msg.BatchID, result, records, events); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(result.Succeeded, result.Failed)
	}
	if err := s.objects.RemoveBatchFiles(ctx, msg.BatchID); err != nil {
		log.Warn().Err(err).Msg("清理批量文件失败")
	}
	log.Info().
		Str("status", string(result.Status)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("异步批量任务处理完成")
	return nil
}

// runBatch 下载批次文件并分析，下载失败的文件记为单项失败
func (s *ResumeService) runBatch(ctx context.Context, msg storage.BatchAnalyzeMessage) *types.BatchResult {
	items := make([]types.BatchItem, len(msg.Files))
	docs := make([]types.DocumentInput, 0, len(msg.Files))
	positions := make([]int, 0, len(msg.Files))

	for i, ref := range msg.Files {
		if ref.Error != "" {
			items[i] = types.BatchItem{
				Index:     ref.Index,
				Filename:  ref.Filename,
				Error:     ref.Error,
				ErrorKind: ref.ErrorKind,
			}
			continue
		}
		data, err := s.objects.GetBatchFile(ctx, ref.ObjectKey)
		if err != nil {
			items[i] = types.BatchItem{
				Index:     ref.Index,
				Filename:  ref.Filename,
				Error:     err.Error(),
				ErrorKind: KindInternal,
			}
			continue
		}
		docs = append(docs, types.DocumentInput{Name: ref.Filename, Data: data})
		positions = append(positions, i)
	}

	if len(docs) > 0 {
		analyzed := s.analyzer.BatchAnalyze(ctx, docs)
		for j, item := range analyzed.Results {
			i := positions[j]
			item.Index = msg.Files[i].Index
			items[i] = item
		}
	}

	return summarizeBatch(msg.BatchID, items)
}

// summarizeBatch 按逐项结果统计成功数与失败数
func summarizeBatch(batchID string, items []types.BatchItem) *types.BatchResult {
	out := &types.BatchResult{
		BatchID:      batchID,
		TotalResumes: len(items),
		Results:      items,
	}
	for _, item := range items {
		if item.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	out.Status = batchStatus(out.Succeeded, out.Failed)
	return out
}

func (s *ResumeService) batchRecords(msg storage.BatchAnalyzeMessage, result *types.BatchResult, fingerprint string) ([]models.AnalysisRecord, []models.OutboxMessage, error) {
	records := make([]models.AnalysisRecord, 0, len(result.Results))
	events := make([]models.OutboxMessage, 0, result.Succeeded+1)

	for i, item := range result.Results {
		objectKey := ""
		if i < len(msg.Files) {
			objectKey = msg.Files[i].ObjectKey
		}

		if !item.Success || item.Result == nil {
			records = append(records, models.AnalysisRecord{
				AnalysisID:       storage.NewRecordID(),
				ItemIndex:        item.Index,
				Filename:         item.Filename,
				ObjectKey:        objectKey,
				ModelFingerprint: fingerprint,
				Success:          false,
				ErrorKind:        item.ErrorKind,
				ErrorMessage:     item.Error,
			})
			continue
		}

		record, err := storage.NewAnalysisRecord(item.Result, fingerprint)
		if err != nil {
			return nil, nil, err
		}
		record.ItemIndex = item.Index
		record.ObjectKey = objectKey
		records = append(records, record)

		event, err := s.completedEvent(item.Result, msg.BatchID, fingerprint)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, event)
	}

	done, err := storage.NewOutboxMessage(
		constants.AggregateBatch, msg.BatchID, constants.EventBatchCompleted,
		s.mq.AnalysisExchange, constants.EventBatchCompleted,
		storage.BatchCompletedEvent{
			BatchID:     msg.BatchID,
			Status:      string(result.Status),
			Total:       result.TotalResumes,
			Succeeded:   result.Succeeded,
			Failed:      result.Failed,
			CompletedAt: time.Now(),
		},
	)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, done)
	return records, events, nil
}

func isTerminal(status types.BatchStatus) bool {
	switch status {
	case types.BatchStatusCompleted, types.BatchStatusPartial, types.BatchStatusFailed:
		return true
	}
	return false
}

// GetBatch 查询异步批量任务的状态与结果
func (s *ResumeService) GetBatch(ctx context.Context, batchID string) (*types.BatchResult, error) {
	if s.repo == nil {
		return nil, ErrAsyncUnavailable
	}
	job, err := s.repo.GetBatchJob(ctx, batchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}

	out := &types.BatchResult{
		BatchID:      job.BatchID,
		TotalResumes: job.Total,
		Succeeded:    job.Succeeded,
		Failed:       job.Failed,
		Status:       types.BatchStatus(job.Status),
		Results:      make([]types.BatchItem, 0, len(job.Records)),
	}
	for _, r := range job.Records {
		item := types.BatchItem{
			Index:     r.ItemIndex,
			Filename:  r.Filename,
			Success:   r.Success,
			Error:     r.ErrorMessage,
			ErrorKind: r.ErrorKind,
		}
		if r.Success && len(r.ResultJSON) > 0 {
			var res types.AnalysisResult
			if err := json.Unmarshal(r.ResultJSON, &res); err != nil {
				s.log.Warn().Err(err).Str("analysis_id", r.AnalysisID).Msg("分析结果无法解析")
			} else {
				item.Result = &res
			}
		}
		out.Results = append(out.Results, item)
	}
	return out, nil
}

// StartConsumer 启动批量任务消费者，返回的通道在所有 worker 退出后关闭
func (s *ResumeService) StartConsumer(ctx context.Context) (<-chan struct{}, error) {
	if !s.AsyncEnabled() {
		return nil, ErrAsyncUnavailable
	}
	return s.queue.StartConsumer(ctx, s.mq.BatchQueue, s.mq.PrefetchCount, s.mq.ConsumerWorkers, s.HandleBatchMessage)
}

// TrainModel 重新训练本实例的模型，训练进行中再次调用返回 ErrTrainingBusy。
// 模型只保存在进程内，各实例独立训练
func (s *ResumeService) TrainModel(ctx context.Context) (*classifier.Model, error) {
	if !s.training.CompareAndSwap(false, true) {
		return nil, ErrTrainingBusy
	}
	defer s.training.Store(false)
	return s.analyzer.Retrain(ctx)
}
