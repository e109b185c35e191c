// Package classifier 基于 TF-IDF 与逐技能逻辑回归的统计技能分类器。
//
// Train 产出不可变的 Model；重新训练只会产生新的 Model，已发布的 Model 不会被修改。
package classifier

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"resume-screening-go/internal/skills"
	"resume-screening-go/internal/types"
)

// ErrScoring 单个技能分类器评分失败
var ErrScoring = errors.New("classifier scoring fault")

// Source 预测结果来源
type Source string

const (
	SourceClassifier      Source = "classifier"
	SourceLexicalFallback Source = "lexical_fallback"
	SourceNone            Source = "none"
)

const vectorizerModelName = "tfidf_vectorizer"

// Prediction 单次预测结果
type Prediction struct {
	Skills []types.ScoredSkill
	Source Source
	Faults int // 评分出错并回退到子串判断的技能数
}

// Names 按顺序返回预测的技能名
func (p Prediction) Names() []string {
	out := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		out = append(out, s.Skill)
	}
	return out
}

// Model 训练完成的不可变模型
type Model struct {
	opts        Options
	vec         *vectorizer
	classifiers map[string]*logistic // 规范形式 -> 分类器
	order       []string             // 持有分类器的技能（规范形式，升序）
	skills      []string             // 语料中出现过的技能（首次出现的写法）
	canonical   []string             // 与 skills 一一对应
	display     map[string]string
	corpusSize  int
	trainedAt   time.Time
	fingerprint string
}

// Untrained 返回未训练的空模型
func Untrained(opts ...Option) *Model {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Model{
		opts:        o,
		classifiers: map[string]*logistic{},
		display:     map[string]string{},
		fingerprint: "untrained",
	}
}

// Train 在语料上拟合向量化器与逐技能分类器。空语料或没有保留任何分类器时返回未训练模型
func Train(samples []types.TrainingSample, opts ...Option) *Model {
	m := Untrained(opts...)
	if len(samples) == 0 {
		return m
	}
	o := m.opts

	docs := make([]string, len(samples))
	labels := make([]map[string]struct{}, len(samples))
	for i, s := range samples {
		docs[i] = s.Text
		labels[i] = make(map[string]struct{}, len(s.Skills))
		for _, raw := range s.Skills {
			canonical := skills.Normalize(raw)
			if canonical == "" {
				continue
			}
			labels[i][canonical] = struct{}{}
			if _, ok := m.display[canonical]; !ok {
				m.display[canonical] = strings.TrimSpace(raw)
				m.skills = append(m.skills, strings.TrimSpace(raw))
				m.canonical = append(m.canonical, canonical)
			}
		}
	}
	m.corpusSize = len(samples)

	m.vec = fitVectorizer(docs, o.MaxFeatures)
	xs := make([]sparseVector, len(docs))
	for i, doc := range docs {
		xs[i] = m.vec.transform(doc)
	}

	candidates := make([]string, len(m.canonical))
	copy(candidates, m.canonical)
	sort.Strings(candidates)

	trainIdx, testIdx := splitIndices(len(samples), o.TestRatio, o.Seed)
	for _, skill := range candidates {
		// 语料过小时训练集或测试集为空，无法训练与评估
		if len(trainIdx) == 0 || len(testIdx) == 0 {
			break
		}
		ys := make([]float64, len(samples))
		positives := 0
		for i := range samples {
			if _, ok := labels[i][skill]; ok {
				ys[i] = 1
				positives++
			}
		}
		if positives < o.MinPositives {
			continue
		}

		trainX, trainY := subset(xs, ys, trainIdx)
		if singleClass(trainY) {
			continue
		}
		testX, testY := subset(xs, ys, testIdx)

		clf := fitLogistic(trainX, trainY, m.vec.dim(), o)
		if clf.accuracy(testX, testY) > o.MinAccuracy {
			m.classifiers[skill] = clf
			m.order = append(m.order, skill)
		}
	}

	if len(m.classifiers) == 0 {
		// 保留语料统计信息，但不视为已训练
		m.vec = nil
		return m
	}
	m.trainedAt = time.Now()
	m.fingerprint = m.computeFingerprint()
	return m
}

func subset(xs []sparseVector, ys []float64, idx []int) ([]sparseVector, []float64) {
	outX := make([]sparseVector, len(idx))
	outY := make([]float64, len(idx))
	for i, j := range idx {
		outX[i] = xs[j]
		outY[i] = ys[j]
	}
	return outX, outY
}

func singleClass(ys []float64) bool {
	if len(ys) == 0 {
		return true
	}
	for _, y := range ys[1:] {
		if y != ys[0] {
			return false
		}
	}
	return true
}

func (m *Model) computeFingerprint() string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, term := range m.vec.terms {
		h.Write([]byte(term))
		h.Write([]byte{0})
	}
	for _, skill := range m.order {
		h.Write([]byte(skill))
		h.Write([]byte{0})
		clf := m.classifiers[skill]
		for _, w := range clf.weights {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(w))
			h.Write(buf)
		}
		binary.LittleEndian.PutUint64(buf, math.Float64bits(clf.bias))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Trained 是否至少保留了一个分类器
func (m *Model) Trained() bool {
	return m != nil && len(m.classifiers) > 0
}

// Skills 语料中出现过的技能
func (m *Model) Skills() []string {
	out := make([]string, len(m.skills))
	copy(out, m.skills)
	return out
}

// ClassifierSkills 持有分类器的技能（展示写法，按规范形式升序）
func (m *Model) ClassifierSkills() []string {
	out := make([]string, 0, len(m.order))
	for _, s := range m.order {
		out = append(out, m.display[s])
	}
	return out
}

// ModelNames 已加载的模型名称
func (m *Model) ModelNames() []string {
	if !m.Trained() {
		return []string{}
	}
	out := make([]string, 0, len(m.order)+1)
	out = append(out, vectorizerModelName)
	for _, s := range m.order {
		out = append(out, "logistic_regression:"+s)
	}
	return out
}

// FeatureCount 向量化特征数
func (m *Model) FeatureCount() int {
	if m.vec == nil {
		return 0
	}
	return m.vec.dim()
}

// CorpusSize 训练语料条数
func (m *Model) CorpusSize() int {
	return m.corpusSize
}

// TrainedAt 训练完成时间，未训练为零值
func (m *Model) TrainedAt() time.Time {
	return m.trainedAt
}

// Fingerprint 标识拟合状态的稳定摘要
func (m *Model) Fingerprint() string {
	return m.fingerprint
}

// Options 模型使用的参数
func (m *Model) Options() Options {
	return m.opts
}

// Predict 对文本做技能预测；topN <= 0 时使用默认值
func (m *Model) Predict(text string, topN int) Prediction {
	empty := Prediction{Skills: []types.ScoredSkill{}, Source: SourceNone}
	if !m.Trained() || strings.TrimSpace(text) == "" {
		return empty
	}
	if topN <= 0 {
		topN = m.opts.TopN
	}

	lower := strings.ToLower(text)
	x := m.vec.transform(text)
	pred := Prediction{Skills: make([]types.ScoredSkill, 0), Source: SourceClassifier}
	for _, skill := range m.order {
		p, err := m.score(skill, x)
		if err != nil {
			pred.Faults++
			if strings.Contains(lower, skill) {
				pred.Skills = append(pred.Skills, types.ScoredSkill{Skill: m.display[skill], Confidence: m.opts.FallbackConfidence})
			}
			continue
		}
		if p > m.opts.Threshold {
			pred.Skills = append(pred.Skills, types.ScoredSkill{Skill: m.display[skill], Confidence: p})
		}
	}

	if len(pred.Skills) > 0 {
		sort.SliceStable(pred.Skills, func(i, j int) bool {
			if pred.Skills[i].Confidence != pred.Skills[j].Confidence {
				return pred.Skills[i].Confidence > pred.Skills[j].Confidence
			}
			return strings.ToLower(pred.Skills[i].Skill) < strings.ToLower(pred.Skills[j].Skill)
		})
		if len(pred.Skills) > topN {
			pred.Skills = pred.Skills[:topN]
		}
		return pred
	}

	fallback := m.lexicalFallback(lower, topN)
	fallback.Faults = pred.Faults
	return fallback
}

// score 计算单个技能的正类概率，任何异常都转换为 ErrScoring
func (m *Model) score(skill string, x sparseVector) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrScoring, skill, r)
		}
	}()
	clf, ok := m.classifiers[skill]
	if !ok {
		return 0, fmt.Errorf("%w: %s: 分类器不存在", ErrScoring, skill)
	}
	if len(clf.weights) != m.vec.dim() {
		return 0, fmt.Errorf("%w: %s: 维度不匹配 %d != %d", ErrScoring, skill, len(clf.weights), m.vec.dim())
	}
	p = clf.probability(x)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: %s: 非有限概率", ErrScoring, skill)
	}
	return p, nil
}

// lexicalFallback 在语料技能上做整词或首尾匹配
func (m *Model) lexicalFallback(lower string, topN int) Prediction {
	trimmed := strings.TrimSpace(lower)
	out := Prediction{Skills: make([]types.ScoredSkill, 0), Source: SourceNone}
	for i, canonical := range m.canonical {
		if skills.ContainsWholeWord(trimmed, canonical) ||
			strings.HasPrefix(trimmed, canonical) ||
			strings.HasSuffix(trimmed, canonical) {
			out.Skills = append(out.Skills, types.ScoredSkill{Skill: m.skills[i], Confidence: m.opts.FallbackConfidence})
			if len(out.Skills) >= topN {
				break
			}
		}
	}
	if len(out.Skills) > 0 {
		out.Source = SourceLexicalFallback
	}
	return out
}
