package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"resume-screening-go/internal/skills"
	"resume-screening-go/internal/types"
)

const (
	previewLength       = 500
	scorePerSkill       = 5
	maxHeuristicScore   = 100
	defaultAIScore      = 75
	experienceUnknown   = "Experience not specified"
	educationUnknown    = "Education not specified"
	experienceSummaryFB = "Professional experience detected"
	educationSummaryFB  = "Educational background identified"
)

// 按顺序尝试，首个命中生效
var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*years?\s*of\s*experience`),
	regexp.MustCompile(`(\d+)\s*\+\s*years?`),
	regexp.MustCompile(`experience:\s*(\d+)\s*years?`),
}

var educationKeywords = []string{
	"bachelor", "master", "phd", "doctorate", "associate",
	"b.s.", "m.s.", "b.a.", "m.a.", "mba",
}

var (
	fallbackStrengths  = []string{"Experience in various technologies", "Strong problem-solving skills"}
	fallbackWeaknesses = []string{"Could benefit from more specific experience", "Consider additional certifications"}
)

func extractExperience(text string) string {
	lower := strings.ToLower(text)
	for _, p := range experiencePatterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			return m[1] + " years"
		}
	}
	return experienceUnknown
}

func extractEducation(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range educationKeywords {
		if strings.Contains(lower, kw) {
			return skills.Display(kw) + "'s Degree"
		}
	}
	return educationUnknown
}

func heuristicScore(skillCount int) int {
	return min(maxHeuristicScore, scorePerSkill*skillCount)
}

func textPreview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}

// fallbackEnrichment AI增强不可用时的默认值
func fallbackEnrichment() types.Enrichment {
	return types.Enrichment{
		Skills:            []string{},
		Strengths:         append([]string(nil), fallbackStrengths...),
		Weaknesses:        append([]string(nil), fallbackWeaknesses...),
		ExperienceSummary: experienceSummaryFB,
		EducationSummary:  educationSummaryFB,
		OverallScore:      defaultAIScore,
	}
}

// mergeEnrichment 用增强结果覆盖默认值，缺失字段保留默认
func mergeEnrichment(e *types.Enrichment) types.Enrichment {
	out := fallbackEnrichment()
	if e == nil {
		return out
	}
	if e.Skills != nil {
		out.Skills = e.Skills
	}
	if len(e.Strengths) > 0 {
		out.Strengths = e.Strengths
	}
	if len(e.Weaknesses) > 0 {
		out.Weaknesses = e.Weaknesses
	}
	if strings.TrimSpace(e.ExperienceSummary) != "" {
		out.ExperienceSummary = e.ExperienceSummary
	}
	if strings.TrimSpace(e.EducationSummary) != "" {
		out.EducationSummary = e.EducationSummary
	}
	if e.OverallScore > 0 {
		out.OverallScore = min(e.OverallScore, 100)
	}
	return out
}
