package types

import "time"

// AnalysisMethod 技能提取方式标签
type AnalysisMethod string

const (
	// MethodTraditional 仅词法提取
	MethodTraditional AnalysisMethod = "traditional"
	// MethodHybrid 词法提取 + 统计分类器
	MethodHybrid AnalysisMethod = "hybrid_ai_ml"
)

// DocumentFormat 文档声明格式
type DocumentFormat string

const (
	// FormatText 纯文本
	FormatText DocumentFormat = "text"
	// FormatRichText 富文本文档 (docx)
	FormatRichText DocumentFormat = "rich_text"
	// FormatPaginated 分页文档 (pdf)
	FormatPaginated DocumentFormat = "paginated"
)

// BatchStatus 批量分析的整体状态
type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "queued"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed" // 全部成功
	BatchStatusPartial    BatchStatus = "partial"   // 部分失败
	BatchStatusFailed     BatchStatus = "failed"    // 全部失败
)

// TrainingSample 训练语料中的一条记录，与 training_data.json 格式一致
type TrainingSample struct {
	Text   string   `json:"text"`
	Skills []string `json:"skills"`
	Label  int      `json:"label,omitempty"`
}

// ScoredSkill 带置信度的技能
type ScoredSkill struct {
	Skill      string  `json:"skill"`
	Confidence float64 `json:"confidence"`
}

// DocumentInput 待分析的单个文档。Path 与 Data 二选一
type DocumentInput struct {
	Name   string
	Path   string
	Data   []byte
	Format DocumentFormat
}

// ExtractionResult 技能提取结果
type ExtractionResult struct {
	Skills        []string       `json:"skills"`
	Method        AnalysisMethod `json:"method"`
	LexicalSkills []string       `json:"lexical_skills"`
	MLSkills      []string       `json:"ml_skills"`
	Template      string         `json:"template"` // 命中的岗位模板标题，未命中为空
}

// Enrichment 外部AI增强结果
type Enrichment struct {
	Skills            []string `json:"skills"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	ExperienceSummary string   `json:"experience_summary"`
	EducationSummary  string   `json:"education_summary"`
	OverallScore      int      `json:"overall_score"`
}

// AnalysisResult 单个文档的分析结果，所有字段始终存在
type AnalysisResult struct {
	ID                string         `json:"id"`
	Filename          string         `json:"filename"`
	Skills            []string       `json:"skills"`
	MLSkills          []string       `json:"ml_extracted_skills"`
	Experience        string         `json:"experience"`
	Education         string         `json:"education"`
	Score             int            `json:"score"`
	Method            AnalysisMethod `json:"analysis_method"`
	Text              string         `json:"text"`
	Strengths         []string       `json:"strengths"`
	Weaknesses        []string       `json:"weaknesses"`
	ExperienceSummary string         `json:"experience_summary"`
	EducationSummary  string         `json:"education_summary"`
	AIScore           int            `json:"ai_score"`
	Enriched          bool           `json:"ai_enriched"`
}

// BatchItem 批量分析中单个文档的结果；失败时 Result 为空，Error 非空
type BatchItem struct {
	Index     int             `json:"index"`
	Filename  string          `json:"filename"`
	Success   bool            `json:"success"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// BatchResult 批量分析结果
type BatchResult struct {
	BatchID      string      `json:"batch_id,omitempty"`
	TotalResumes int         `json:"total_resumes"`
	Succeeded    int         `json:"succeeded"`
	Failed       int         `json:"failed"`
	Status       BatchStatus `json:"status"`
	Results      []BatchItem `json:"results"`
}

// MatchReport 简历与JD的匹配结果
type MatchReport struct {
	MatchScore        int            `json:"match_score"`
	MatchedSkills     []string       `json:"matched_skills"`
	MissingSkills     []string       `json:"missing_skills"`
	ResumeSkillsCount int            `json:"resume_skills_count"`
	JobSkillsCount    int            `json:"job_skills_count"`
	ResumeSkills      []string       `json:"resume_skills"`
	JobSkills         []string       `json:"job_skills"`
	Similarity        float64        `json:"jaccard_similarity"`
	Method            AnalysisMethod `json:"analysis_method"`
}

// JobTemplate 岗位模板
type JobTemplate struct {
	Key            string   `json:"key" yaml:"key"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description" yaml:"description"`
	RequiredSkills []string `json:"required_skills" yaml:"required_skills"`
}

// JobPosting 用于推荐的示例职位
type JobPosting struct {
	Title          string   `json:"title" yaml:"title"`
	Company        string   `json:"company" yaml:"company"`
	Location       string   `json:"location" yaml:"location"`
	Salary         string   `json:"salary" yaml:"salary"`
	RequiredSkills []string `json:"required_skills" yaml:"required_skills"`
	Description    string   `json:"description" yaml:"description"`
}

// Recommendation 岗位推荐结果
type Recommendation struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Salary      string   `json:"salary"`
	Match       int      `json:"match"`
	Similarity  float64  `json:"similarity"`
	Skills      []string `json:"skills"`
	Description string   `json:"description"`
}

// RankedTemplate 按 Jaccard 相似度排序后的岗位模板
type RankedTemplate struct {
	Key             string   `json:"key"`
	Title           string   `json:"title"`
	Similarity      float64  `json:"similarity"`
	MatchPercentage int      `json:"match_percentage"`
	MatchedSkills   []string `json:"matched_skills"`
	RequiredSkills  []string `json:"required_skills"`
}

// ModelStatus 统计模型状态
type ModelStatus struct {
	Trained           bool       `json:"ml_trained"`
	UniqueSkillsCount int        `json:"unique_skills_count"`
	VocabularySize    int        `json:"vocabulary_size"`
	ModelsAvailable   []string   `json:"models_available"`
	ClassifierCount   int        `json:"classifier_count"`
	FeatureCount      int        `json:"feature_count"`
	CorpusSize        int        `json:"corpus_size"`
	Fingerprint       string     `json:"fingerprint"`
	TrainedAt         *time.Time `json:"trained_at,omitempty"`
}
