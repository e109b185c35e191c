package processor

import (
	"sort"

	"resume-screening-go/internal/matcher"
	"resume-screening-go/internal/types"
)

const recommendMinMatch = 50

// RecommendJobs 在示例职位中推荐匹配度超过50%的岗位，匹配度降序，其次 Jaccard 降序
func (a *SkillAnalyzer) RecommendJobs(skillset []string) ([]types.Recommendation, error) {
	if len(skillset) == 0 {
		return nil, NewInputError("recommend_jobs", "No skills provided")
	}
	out := make([]types.Recommendation, 0)
	if a.catalog == nil {
		return out, nil
	}
	for _, job := range a.catalog.Postings() {
		res := matcher.Percentage(skillset, job.RequiredSkills)
		if res.Percentage <= recommendMinMatch {
			continue
		}
		out = append(out, types.Recommendation{
			Title:       job.Title,
			Company:     job.Company,
			Location:    job.Location,
			Salary:      job.Salary,
			Match:       res.Percentage,
			Similarity:  matcher.Jaccard(skillset, job.RequiredSkills),
			Skills:      job.RequiredSkills,
			Description: job.Description,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Match != out[j].Match {
			return out[i].Match > out[j].Match
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

// RankTemplates 按 Jaccard 相似度对岗位模板排序
func (a *SkillAnalyzer) RankTemplates(skillset []string) ([]types.RankedTemplate, error) {
	if len(skillset) == 0 {
		return nil, NewInputError("rank_templates", "No skills provided")
	}
	out := make([]types.RankedTemplate, 0)
	if a.catalog == nil {
		return out, nil
	}
	templates := a.catalog.Templates()
	byKey := make(map[string]types.JobTemplate, len(templates))
	candidates := make([]matcher.Candidate, 0, len(templates))
	for _, t := range templates {
		byKey[t.Key] = t
		candidates = append(candidates, matcher.Candidate{ID: t.Key, Skills: t.RequiredSkills})
	}
	for _, r := range matcher.RankByJaccard(skillset, candidates) {
		t := byKey[r.ID]
		out = append(out, types.RankedTemplate{
			Key:             t.Key,
			Title:           t.Title,
			Similarity:      r.Similarity,
			MatchPercentage: r.Percentage,
			MatchedSkills:   r.Matched,
			RequiredSkills:  t.RequiredSkills,
		})
	}
	return out, nil
}
