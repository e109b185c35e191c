package skills

import (
	"errors"
	"strings"
	"unicode"
)

// ErrEmptyVocabulary 词表为空时返回，调用方应终止启动
var ErrEmptyVocabulary = errors.New("技能词表为空")

// Vocabulary 不可变的规范技能词表，大小写不敏感去重，保留首次出现的顺序
type Vocabulary struct {
	entries []string            // 规范形式（小写）
	index   map[string]struct{} // 规范形式集合
}

// NewVocabulary 从静态技能列表构建词表
func NewVocabulary(source []string) (*Vocabulary, error) {
	v := &Vocabulary{
		entries: make([]string, 0, len(source)),
		index:   make(map[string]struct{}, len(source)),
	}
	for _, raw := range source {
		canonical := Normalize(raw)
		if canonical == "" {
			continue
		}
		if _, exists := v.index[canonical]; exists {
			continue
		}
		v.index[canonical] = struct{}{}
		v.entries = append(v.entries, canonical)
	}
	if len(v.entries) == 0 {
		return nil, ErrEmptyVocabulary
	}
	return v, nil
}

// Normalize 返回技能或文本的规范形式
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// All 按顺序返回所有规范形式的技能（副本）
func (v *Vocabulary) All() []string {
	out := make([]string, len(v.entries))
	copy(out, v.entries)
	return out
}

// Contains 大小写不敏感的精确成员判断，不做子串匹配
func (v *Vocabulary) Contains(skill string) bool {
	_, ok := v.index[Normalize(skill)]
	return ok
}

// Len 词表大小
func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// Display 返回技能的展示形式。
// 规则：紧跟在非字母字符之后的字母大写，其余字母小写，例如 node.js -> Node.Js
func Display(skill string) string {
	var b strings.Builder
	b.Grow(len(skill))
	prevCased := false
	for _, r := range strings.TrimSpace(skill) {
		if unicode.IsLetter(r) {
			if prevCased {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevCased = true
			continue
		}
		b.WriteRune(r)
		prevCased = false
	}
	return b.String()
}
