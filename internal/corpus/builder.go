// Package corpus 从简历目录构建训练语料
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/skills"
	"resume-screening-go/internal/types"
)

const (
	// ProcessedFile 处理结果文件名
	ProcessedFile = "processed_resumes.json"
	// TrainingFile 训练语料文件名
	TrainingFile = "training_data.json"

	maxTextLen = 1000
)

// ProcessedResume processed_resumes.json 中的一条记录
type ProcessedResume struct {
	Filename     string   `json:"filename"`
	FileType     string   `json:"file_type"`
	Text         string   `json:"text"`
	Skills       []string `json:"skills"`
	SkillsCount  int      `json:"skills_count"`
	OriginalPath string   `json:"original_path"`
}

// Summary 构建统计
type Summary struct {
	Total         int      `json:"total"`
	Failed        int      `json:"failed"`
	TotalSkills   int      `json:"total_skills"`
	AverageSkills float64  `json:"average_skills"`
	UniqueSkills  int      `json:"unique_skills"`
	SampleSkills  []string `json:"sample_skills"`
}

// Builder 语料构建器
type Builder struct {
	extractor processor.TextExtractor
	lexical   *skills.LexicalExtractor
	log       zerolog.Logger
}

// NewBuilder 创建语料构建器
func NewBuilder(extractor processor.TextExtractor, lexical *skills.LexicalExtractor) *Builder {
	return &Builder{
		extractor: extractor,
		lexical:   lexical,
		log:       logger.Component("corpus"),
	}
}

// ProcessDir 递归处理目录中的 pdf、docx、txt 文件。单个文件失败只记录日志
func (b *Builder) ProcessDir(ctx context.Context, dir string) ([]ProcessedResume, int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".docx", ".txt":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("遍历简历目录失败: %w", err)
	}
	sort.Strings(files)
	b.log.Info().Int("files", len(files)).Str("dir", dir).Msg("开始处理简历文件")

	processed := make([]ProcessedResume, 0, len(files))
	failed := 0
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return processed, failed, err
		}
		rec, err := b.ProcessFile(ctx, path)
		if err != nil {
			failed++
			b.log.Warn().Err(err).Str("file", path).Msg("处理简历失败")
			continue
		}
		b.log.Debug().Int("index", i+1).Str("file", rec.Filename).Int("skills", rec.SkillsCount).Msg("简历处理完成")
		processed = append(processed, rec)
	}
	return processed, failed, nil
}

// ProcessFile 提取单个文件的文本和词法技能
func (b *Builder) ProcessFile(ctx context.Context, path string) (ProcessedResume, error) {
	text, err := b.extractor.ExtractText(ctx, path, "")
	if err != nil {
		return ProcessedResume{}, err
	}
	found := b.lexical.Extract(text)
	return ProcessedResume{
		Filename:     filepath.Base(path),
		FileType:     strings.ToLower(filepath.Ext(path)),
		Text:         truncate(text),
		Skills:       found,
		SkillsCount:  len(found),
		OriginalPath: path,
	}, nil
}

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxTextLen {
		return text
	}
	return string(r[:maxTextLen]) + "..."
}

// TrainingSamples 每条处理结果生成一个正样本
func TrainingSamples(processed []ProcessedResume) []types.TrainingSample {
	samples := make([]types.TrainingSample, 0, len(processed))
	for _, p := range processed {
		samples = append(samples, types.TrainingSample{Text: p.Text, Skills: p.Skills, Label: 1})
	}
	return samples
}

// Summarize 汇总技能统计，样例为排序后的前10个技能
func Summarize(processed []ProcessedResume, failed int) Summary {
	s := Summary{Total: len(processed), Failed: failed, SampleSkills: []string{}}
	unique := make(map[string]struct{})
	for _, p := range processed {
		s.TotalSkills += len(p.Skills)
		for _, sk := range p.Skills {
			unique[sk] = struct{}{}
		}
	}
	if s.Total > 0 {
		s.AverageSkills = float64(s.TotalSkills) / float64(s.Total)
	}
	s.UniqueSkills = len(unique)

	all := make([]string, 0, len(unique))
	for sk := range unique {
		all = append(all, sk)
	}
	sort.Strings(all)
	if len(all) > 10 {
		all = all[:10]
	}
	s.SampleSkills = append(s.SampleSkills, all...)
	return s
}

// WriteFiles 写出 processed_resumes.json 和 training_data.json，返回训练语料的 JSON 内容
func WriteFiles(outDir string, processed []ProcessedResume) ([]byte, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := writeJSON(filepath.Join(outDir, ProcessedFile), processed); err != nil {
		return nil, err
	}
	training, err := json.MarshalIndent(TrainingSamples(processed), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化训练语料失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, TrainingFile), training, 0o644); err != nil {
		return nil, fmt.Errorf("写入训练语料失败: %w", err)
	}
	return training, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", filepath.Base(path), err)
	}
	return nil
}
