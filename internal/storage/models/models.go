package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisRecord 单份简历的分析结果快照
type AnalysisRecord struct {
	AnalysisID       string         `gorm:"type:char(36);primaryKey"`
	BatchID          *string        `gorm:"type:char(36);index:idx_ar_batch_id"` // 同步分析时为空
	ItemIndex        int            `gorm:"default:0"`
	Filename         string         `gorm:"type:varchar(255)"`
	ObjectKey        string         `gorm:"type:varchar(1024)"` // 原始文件在MinIO中的路径
	TextMD5          string         `gorm:"type:char(32);index:idx_ar_text_md5"`
	ModelFingerprint string         `gorm:"type:char(64)"`
	Method           string         `gorm:"type:varchar(32)"`
	Score            int            `gorm:"default:0"`
	Success          bool           `gorm:"default:true"`
	ErrorKind        string         `gorm:"type:varchar(50)"`
	ErrorMessage     string         `gorm:"type:text"`
	SkillsJSON       datatypes.JSON `gorm:"type:json"`
	ResultJSON       datatypes.JSON `gorm:"type:json"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_ar_created_at"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// BatchJob 异步批量分析任务
type BatchJob struct {
	BatchID     string     `gorm:"type:char(36);primaryKey"`
	Status      string     `gorm:"type:varchar(20);default:'queued';index:idx_bj_status"`
	Total       int        `gorm:"default:0"`
	Succeeded   int        `gorm:"default:0"`
	Failed      int        `gorm:"default:0"`
	CreatedAt   time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
	CompletedAt *time.Time `gorm:"type:datetime(6);null"`

	Records []AnalysisRecord `gorm:"foreignKey:BatchID;references:BatchID"`
}

func (BatchJob) TableName() string {
	return "batch_jobs"
}

// TrainingSample 分类器训练语料
type TrainingSample struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	Text       string         `gorm:"type:mediumtext;not null"`
	SkillsJSON datatypes.JSON `gorm:"type:json;not null"`
	Label      int            `gorm:"default:1"`
	Source     string         `gorm:"type:varchar(255)"` // 来源文件名
	TextMD5    string         `gorm:"type:char(32);uniqueIndex:idx_ts_text_md5_unique"`
	CreatedAt  time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (TrainingSample) TableName() string {
	return "training_samples"
}
