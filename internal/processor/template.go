package processor

import (
	"strings"

	"resume-screening-go/internal/types"
)

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// matchTemplate 返回与描述共有词数超过阈值的第一个模板
func matchTemplate(description string, templates []types.JobTemplate, threshold int) (types.JobTemplate, bool) {
	words := wordSet(description)
	for _, tpl := range templates {
		common := 0
		for w := range wordSet(tpl.Description) {
			if _, ok := words[w]; ok {
				common++
			}
		}
		if common > threshold {
			return tpl, true
		}
	}
	return types.JobTemplate{}, false
}
