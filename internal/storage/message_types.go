package storage

import "time"

// BatchFileRef 异步批量任务中的单个文件
type BatchFileRef struct {
	Index     int    `json:"index"`                // 在批次中的位置，结果按此顺序返回
	Filename  string `json:"filename"`             // 原始文件名
	ObjectKey string `json:"object_key,omitempty"` // 文件在批量存储桶中的对象键，上传校验失败时为空
	Error     string `json:"error,omitempty"`      // 上传校验失败信息
	ErrorKind string `json:"error_kind,omitempty"` // 上传校验失败类别
}

// BatchAnalyzeMessage 异步批量分析请求消息
type BatchAnalyzeMessage struct {
	BatchID     string         `json:"batch_id"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Files       []BatchFileRef `json:"files"`
}

// AnalysisCompletedEvent 单份简历分析完成事件，经 outbox 发布
type AnalysisCompletedEvent struct {
	AnalysisID       string    `json:"analysis_id"`
	BatchID          string    `json:"batch_id,omitempty"`
	Filename         string    `json:"filename"`
	Skills           []string  `json:"skills"`
	Score            int       `json:"score"`
	Method           string    `json:"analysis_method"`
	ModelFingerprint string    `json:"model_fingerprint"`
	CompletedAt      time.Time `json:"completed_at"`
}

// BatchCompletedEvent 批量任务完成事件
type BatchCompletedEvent struct {
	BatchID     string    `json:"batch_id"`
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CompletedAt time.Time `json:"completed_at"`
}
