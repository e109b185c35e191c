package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// AnalysisModulePrefix 分析模块
	AnalysisModulePrefix = "analysis"
	// BatchModulePrefix 批量任务模块
	BatchModulePrefix = "batch"

	// EntityResult 分析结果实体
	EntityResult = "result"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyAnalysisResult 分析结果缓存 (STRING, JSON)
	// 格式: app:analysis:result:{textMD5}:{modelFingerprint}
	KeyAnalysisResult = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityResult + ":%s"

	// KeyBatchLock 批量任务处理锁，防止重投的消息被并发处理
	// 格式: app:batch:lock:{batchID}
	KeyBatchLock = AppPrefix + ":" + BatchModulePrefix + ":" + EntityLock + ":%s"
)
