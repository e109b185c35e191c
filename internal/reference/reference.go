// Package reference 提供内置的静态参考数据：技能词表来源、岗位模板、示例职位，以及训练语料加载。
package reference

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"resume-screening-go/internal/types"
)

//go:embed data/skills.yaml
var skillsYAML []byte

//go:embed data/jobs.yaml
var jobsYAML []byte

type skillsFile struct {
	Skills   []string `yaml:"skills"`
	Keywords []string `yaml:"keywords"`
}

type jobsFile struct {
	Templates []types.JobTemplate `yaml:"templates"`
	Postings  []types.JobPosting  `yaml:"postings"`
}

// Catalog 只读的参考数据目录，构建后可被并发读取
type Catalog struct {
	skills    []string
	keywords  []string
	templates []types.JobTemplate
	postings  []types.JobPosting
}

// NewCatalog 解析内置的 YAML 数据
func NewCatalog() (*Catalog, error) {
	var sf skillsFile
	if err := yaml.Unmarshal(skillsYAML, &sf); err != nil {
		return nil, fmt.Errorf("解析内置技能数据失败: %w", err)
	}
	var jf jobsFile
	if err := yaml.Unmarshal(jobsYAML, &jf); err != nil {
		return nil, fmt.Errorf("解析内置岗位数据失败: %w", err)
	}
	return &Catalog{
		skills:    sf.Skills,
		keywords:  sf.Keywords,
		templates: jf.Templates,
		postings:  jf.Postings,
	}, nil
}

// VocabularySource 返回技能数据库与关键词列表的合并结果（未去重，去重由词表负责）
func (c *Catalog) VocabularySource() []string {
	out := make([]string, 0, len(c.skills)+len(c.keywords))
	out = append(out, c.skills...)
	out = append(out, c.keywords...)
	return out
}

// Templates 返回全部岗位模板
func (c *Catalog) Templates() []types.JobTemplate {
	out := make([]types.JobTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// TemplateByTitle 按 key 或标题做大小写不敏感的子串查找，未找到返回 false
func (c *Catalog) TemplateByTitle(query string) (types.JobTemplate, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return types.JobTemplate{}, false
	}
	for _, t := range c.templates {
		if strings.EqualFold(t.Key, q) || strings.EqualFold(t.Title, q) {
			return t, true
		}
	}
	for _, t := range c.templates {
		if strings.Contains(strings.ToLower(t.Key), q) || strings.Contains(strings.ToLower(t.Title), q) {
			return t, true
		}
	}
	return types.JobTemplate{}, false
}

// Titles 返回所有模板标题
func (c *Catalog) Titles() []string {
	out := make([]string, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Title)
	}
	return out
}

// SkillsForJob 返回指定岗位的必备技能，未知岗位返回空切片
func (c *Catalog) SkillsForJob(title string) []string {
	t, ok := c.TemplateByTitle(title)
	if !ok {
		return []string{}
	}
	out := make([]string, len(t.RequiredSkills))
	copy(out, t.RequiredSkills)
	return out
}

// SearchSkills 在技能数据库中做大小写不敏感的子串搜索，结果去重
func (c *Catalog) SearchSkills(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0)
	if q == "" {
		return out
	}
	seen := make(map[string]struct{})
	for _, s := range c.skills {
		lower := strings.ToLower(s)
		if !strings.Contains(lower, q) {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Postings 返回示例职位
func (c *Catalog) Postings() []types.JobPosting {
	out := make([]types.JobPosting, len(c.postings))
	copy(out, c.postings)
	return out
}

// LoadVocabularySource 返回内置词表来源，extraPath 非空时追加运维提供的技能文件（每行一个，# 开头为注释）
func (c *Catalog) LoadVocabularySource(extraPath string) ([]string, error) {
	source := c.VocabularySource()
	if extraPath == "" {
		return source, nil
	}
	f, err := os.Open(extraPath)
	if err != nil {
		return nil, fmt.Errorf("打开扩展技能文件失败: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		source = append(source, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取扩展技能文件失败: %w", err)
	}
	return source, nil
}

// FileCorpusLoader 从 training_data.json 加载训练语料
type FileCorpusLoader struct {
	Path string
}

// Load 文件不存在视为空语料
func (l FileCorpusLoader) Load(ctx context.Context) ([]types.TrainingSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.TrainingSample{}, nil
		}
		return nil, fmt.Errorf("读取训练语料失败: %w", err)
	}
	return DecodeCorpus(data)
}

// DecodeCorpus 解析 JSON 数组格式的训练语料，丢弃空文本样本
func DecodeCorpus(data []byte) ([]types.TrainingSample, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []types.TrainingSample{}, nil
	}
	var raw []types.TrainingSample
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析训练语料失败: %w", err)
	}
	samples := make([]types.TrainingSample, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}
