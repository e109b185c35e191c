package constants

import "time"

const (
	// ServiceName 服务名，用于日志与追踪
	ServiceName = "resume-screening-go"
	// Version 服务版本
	Version = "1.0.0"

	// AnalysisCacheTTL 分析结果缓存的默认过期时间
	AnalysisCacheTTL = 24 * time.Hour

	// DefaultMaxUploadBytes 上传文件大小上限
	DefaultMaxUploadBytes = 16 << 20

	// MaxBatchFiles 单次批量请求的文件数上限
	MaxBatchFiles = 50

	// BatchLockTTL 异步批量任务处理锁的过期时间
	BatchLockTTL = 10 * time.Minute
)

// 消息与 outbox 事件
const (
	// EventAnalysisCompleted 单份简历分析完成事件
	EventAnalysisCompleted = "analysis.completed"
	// EventBatchCompleted 异步批量任务完成事件
	EventBatchCompleted = "analysis.batch.completed"

	// AggregateAnalysis outbox 聚合类型
	AggregateAnalysis = "analysis"
	// AggregateBatch outbox 聚合类型
	AggregateBatch = "batch"
)

// 支持的上传扩展名
var AllowedExtensions = []string{"pdf", "docx", "txt"}
