package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/storage/models"
	"resume-screening-go/internal/tracing"
	"resume-screening-go/internal/types"
)

var mysqlTracer = otel.Tracer("resume-screening-go/storage/mysql")

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("storage: record not found")

// importBatchSize 训练语料批量写入大小
const importBatchSize = 100

type gormSpanKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after())
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// SQL 在 gorm 回调执行后才完整
		if stmt := db.Statement.SQL.String(); stmt != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(stmt)))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到记录属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// MySQL 分析记录、批量任务、训练语料与发件箱的持久化
type MySQL struct {
	db     *gorm.DB
	dbName string
	log    zerolog.Logger
}

// NewMySQL 创建MySQL客户端并迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.ConnectTimeoutSeconds)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	m, err := NewMySQLWithDB(db, cfg.Database)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	m.log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL并迁移数据库结构")
	return m, nil
}

// NewMySQLWithDB 基于已打开的 gorm 连接创建，注册追踪插件但不迁移表结构
func NewMySQLWithDB(db *gorm.DB, dbName string) (*MySQL, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm 连接不能为空")
	}
	if err := db.Use(NewGormTracingPlugin(dbName)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}
	return &MySQL{
		db:     db,
		dbName: dbName,
		log:    logger.Component("mysql"),
	}, nil
}

func (m *MySQL) autoMigrateSchema() error {
	// 迁移时关闭SQL日志
	silentLogger := gormlogger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)

	err := m.db.Session(&gorm.Session{Logger: silentLogger}).AutoMigrate(
		&models.AnalysisRecord{},
		&models.BatchJob{},
		&models.TrainingSample{},
		&models.OutboxMessage{},
	)
	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// NewRecordID 生成记录主键，优先使用按时间排序的 UUIDv7
func NewRecordID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.Must(uuid.NewV4()).String()
}

// NewOutboxMessage 构造一条待发布的发件箱消息
func NewOutboxMessage(aggregateType, aggregateID, eventType, exchange, routingKey string, payload any) (models.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return models.OutboxMessage{}, fmt.Errorf("序列化outbox payload失败: %w", err)
	}
	return models.OutboxMessage{
		AggregateType:    aggregateType,
		AggregateID:      aggregateID,
		EventType:        eventType,
		Payload:          string(body),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

// NewAnalysisRecord 将分析结果转换为数据库记录
func NewAnalysisRecord(result *types.AnalysisResult, fingerprint string) (models.AnalysisRecord, error) {
	if result == nil {
		return models.AnalysisRecord{}, fmt.Errorf("分析结果不能为空")
	}
	id := result.ID
	if id == "" {
		id = NewRecordID()
	}

	skills, err := json.Marshal(result.Skills)
	if err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("序列化技能列表失败: %w", err)
	}
	full, err := json.Marshal(result)
	if err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("序列化分析结果失败: %w", err)
	}

	sum := md5.Sum([]byte(result.Text))
	return models.AnalysisRecord{
		AnalysisID:       id,
		Filename:         result.Filename,
		TextMD5:          hex.EncodeToString(sum[:]),
		ModelFingerprint: fingerprint,
		Method:           string(result.Method),
		Score:            result.Score,
		Success:          true,
		SkillsJSON:       datatypes.JSON(skills),
		ResultJSON:       datatypes.JSON(full),
	}, nil
}

// SaveAnalysis 在同一事务中写入分析记录与发件箱事件
func (m *MySQL) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord, events ...models.OutboxMessage) error {
	if record == nil {
		return fmt.Errorf("分析记录不能为空")
	}
	if record.AnalysisID == "" {
		record.AnalysisID = NewRecordID()
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("写入分析记录失败: %w", err)
		}
		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return fmt.Errorf("插入outbox记录失败: %w", err)
			}
		}
		return nil
	})
}

// GetAnalysis 按ID查询分析记录
func (m *MySQL) GetAnalysis(ctx context.Context, analysisID string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := m.db.WithContext(ctx).First(&record, "analysis_id = ?", analysisID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateBatchJob 创建批量任务，状态为 queued
func (m *MySQL) CreateBatchJob(ctx context.Context, batchID string, total int) error {
	job := models.BatchJob{
		BatchID: batchID,
		Status:  string(types.BatchStatusQueued),
		Total:   total,
	}
	return m.db.WithContext(ctx).Create(&job).Error
}

// MarkBatchProcessing 将任务标记为处理中
func (m *MySQL) MarkBatchProcessing(ctx context.Context, batchID string) error {
	res := m.db.WithContext(ctx).Model(&models.BatchJob{}).
		Where("batch_id = ?", batchID).
		Update("status", string(types.BatchStatusProcessing))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteBatchJob 在同一事务中写入批次的全部记录、更新任务状态并登记发件箱事件
func (m *MySQL) CompleteBatchJob(ctx context.Context, batchID string, result *types.BatchResult, records []models.AnalysisRecord, events []models.OutboxMessage) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CompleteBatchJob", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.dbName),
		attribute.String("batch.id", batchID),
		attribute.Int("batch.size", len(records)),
	)

	now := time.Now()
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			for i := range records {
				records[i].BatchID = &batchID
			}
			// 消息重投时忽略已写入的记录
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error; err != nil {
				return fmt.Errorf("写入批次记录失败: %w", err)
			}
		}

		res := tx.Model(&models.BatchJob{}).Where("batch_id = ?", batchID).Updates(map[string]interface{}{
			"status":       string(result.Status),
			"succeeded":    result.Succeeded,
			"failed":       result.Failed,
			"completed_at": now,
		})
		if res.Error != nil {
			return fmt.Errorf("更新批次状态失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return fmt.Errorf("插入outbox记录失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetBatchJob 查询批量任务及其按顺序排列的记录
func (m *MySQL) GetBatchJob(ctx context.Context, batchID string) (*models.BatchJob, error) {
	var job models.BatchJob
	err := m.db.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_index asc")
		}).
		First(&job, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ImportTrainingSamples 导入训练语料，按文本MD5去重，返回新写入条数
func (m *MySQL) ImportTrainingSamples(ctx context.Context, samples []types.TrainingSample, source string) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	rows := make([]models.TrainingSample, 0, len(samples))
	for _, s := range samples {
		skills, err := json.Marshal(s.Skills)
		if err != nil {
			return 0, fmt.Errorf("序列化技能列表失败: %w", err)
		}
		label := s.Label
		if label == 0 {
			label = 1
		}
		sum := md5.Sum([]byte(s.Text))
		rows = append(rows, models.TrainingSample{
			Text:       s.Text,
			SkillsJSON: datatypes.JSON(skills),
			Label:      label,
			Source:     source,
			TextMD5:    hex.EncodeToString(sum[:]),
		})
	}

	res := m.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, importBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("导入训练语料失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListTrainingSamples 读取全部训练语料
func (m *MySQL) ListTrainingSamples(ctx context.Context) ([]types.TrainingSample, error) {
	var rows []models.TrainingSample
	if err := m.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询训练语料失败: %w", err)
	}

	samples := make([]types.TrainingSample, 0, len(rows))
	for _, r := range rows {
		var skills []string
		if len(r.SkillsJSON) > 0 {
			if err := json.Unmarshal(r.SkillsJSON, &skills); err != nil {
				m.log.Warn().Err(err).Uint64("id", r.ID).Msg("跳过技能列表无法解析的训练样本")
				continue
			}
		}
		samples = append(samples, types.TrainingSample{Text: r.Text, Skills: skills, Label: r.Label})
	}
	return samples, nil
}

// MySQLCorpusLoader 从 training_samples 表加载训练语料
type MySQLCorpusLoader struct {
	DB *MySQL
}

// Load 读取全部训练语料
func (l MySQLCorpusLoader) Load(ctx context.Context) ([]types.TrainingSample, error) {
	if l.DB == nil {
		return nil, fmt.Errorf("MySQL未初始化")
	}
	return l.DB.ListTrainingSamples(ctx)
}
