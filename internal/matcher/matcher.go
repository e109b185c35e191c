// Package matcher 计算两个技能集合的重合度。
//
// 百分比模式用于面向用户的匹配分，Jaccard 模式用于多个候选岗位之间的内部排序。
package matcher

import (
	"sort"
	"strings"
)

// Result 百分比模式的匹配结果，技能均为小写形式
type Result struct {
	Percentage     int
	Matched        []string
	Missing        []string
	CandidateCount int
	RequiredCount  int
}

func toSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// Percentage 返回 floor(100·|C∩R|/|R|)；R 为空时为 0
func Percentage(candidate, requirement []string) Result {
	c := toSet(candidate)
	r := toSet(requirement)
	res := Result{
		Matched:        make([]string, 0),
		Missing:        make([]string, 0),
		CandidateCount: len(c),
		RequiredCount:  len(r),
	}
	for skill := range r {
		if _, ok := c[skill]; ok {
			res.Matched = append(res.Matched, skill)
		} else {
			res.Missing = append(res.Missing, skill)
		}
	}
	sort.Strings(res.Matched)
	sort.Strings(res.Missing)
	if len(r) > 0 {
		res.Percentage = len(res.Matched) * 100 / len(r)
	}
	return res
}

// Jaccard 返回 |C∩R|/|C∪R|；两者皆空时为 0
func Jaccard(candidate, requirement []string) float64 {
	c := toSet(candidate)
	r := toSet(requirement)
	inter := 0
	for skill := range r {
		if _, ok := c[skill]; ok {
			inter++
		}
	}
	union := len(c) + len(r) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Candidate 待排序的候选岗位
type Candidate struct {
	ID     string
	Skills []string
}

// Ranked 排序结果
type Ranked struct {
	Candidate
	Similarity float64
	Percentage int
	Matched    []string
}

// RankByJaccard 按 Jaccard 相似度降序排列候选，相同分值保持输入顺序
func RankByJaccard(skills []string, candidates []Candidate) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		p := Percentage(skills, c.Skills)
		out = append(out, Ranked{
			Candidate:  c,
			Similarity: Jaccard(skills, c.Skills),
			Percentage: p.Percentage,
			Matched:    p.Matched,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}
