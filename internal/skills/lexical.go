package skills

import (
	"regexp"
	"strings"
)

// 词边界：前后必须是文本边界或非单词字符（支持 c++、.net 以及多词短语）
const (
	boundaryPrefix = `(?:^|[^\p{L}\p{N}_])`
	boundarySuffix = `(?:[^\p{L}\p{N}_]|$)`
)

// LexicalExtractor 基于整词匹配的确定性技能提取器
type LexicalExtractor struct {
	vocab    *Vocabulary
	patterns []*regexp.Regexp // 与 vocab.entries 一一对应
}

// NewLexicalExtractor 为词表中每个技能预编译边界匹配表达式
func NewLexicalExtractor(vocab *Vocabulary) *LexicalExtractor {
	patterns := make([]*regexp.Regexp, len(vocab.entries))
	for i, skill := range vocab.entries {
		patterns[i] = compileBoundary(skill)
	}
	return &LexicalExtractor{vocab: vocab, patterns: patterns}
}

func compileBoundary(canonical string) *regexp.Regexp {
	return regexp.MustCompile(boundaryPrefix + regexp.QuoteMeta(canonical) + boundarySuffix)
}

// Extract 返回文本中出现的技能（展示形式），按词表顺序，大小写不敏感去重。
// 空文本返回空切片。
func (e *LexicalExtractor) Extract(text string) []string {
	found := make([]string, 0)
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return found
	}
	for i, skill := range e.vocab.entries {
		// 先做廉价的子串判断，再跑正则
		if !strings.Contains(lower, skill) {
			continue
		}
		if e.patterns[i].MatchString(lower) {
			found = append(found, Display(skill))
		}
	}
	return found
}

// Vocabulary 返回提取器使用的词表
func (e *LexicalExtractor) Vocabulary() *Vocabulary {
	return e.vocab
}

// ContainsWholeWord 判断 text 中是否以整词形式出现 skill（均大小写不敏感）
func ContainsWholeWord(text, skill string) bool {
	lowerText := strings.ToLower(text)
	canonical := Normalize(skill)
	if canonical == "" || !strings.Contains(lowerText, canonical) {
		return false
	}
	return compileBoundary(canonical).MatchString(lowerText)
}
