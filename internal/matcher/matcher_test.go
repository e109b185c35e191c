package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	res := Percentage([]string{"Python", "React", "AWS"}, []string{"Python", "React", "AWS", "Docker"})

	assert.Equal(t, 75, res.Percentage)
	assert.Equal(t, []string{"aws", "python", "react"}, res.Matched)
	assert.Equal(t, []string{"docker"}, res.Missing)
	assert.Equal(t, 3, res.CandidateCount)
	assert.Equal(t, 4, res.RequiredCount)
}

func TestPercentageEmptyRequirement(t *testing.T) {
	res := Percentage([]string{"Python"}, nil)

	assert.Equal(t, 0, res.Percentage)
	assert.NotNil(t, res.Matched)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.Missing)
}

func TestPercentageFloorsAndDedups(t *testing.T) {
	res := Percentage([]string{"go"}, []string{"Go", "GO", "Rust", "C"})
	assert.Equal(t, 33, res.Percentage, "1/3 向下取整")
	assert.Equal(t, 3, res.RequiredCount)

	full := Percentage([]string{"Go", "Rust", "C", "Java"}, []string{"go", "rust", "c"})
	assert.Equal(t, 100, full.Percentage, "需求是候选的子集时为100")
	assert.Empty(t, full.Missing)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 1.0, Jaccard([]string{"Python"}, []string{"python"}))
	assert.InDelta(t, 0.75, Jaccard([]string{"Python", "React", "AWS"}, []string{"Python", "React", "AWS", "Docker"}), 1e-9)
	assert.Equal(t, 0.0, Jaccard([]string{"Python"}, []string{"Docker"}))
}

func TestRankByJaccardStable(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Skills: []string{"Docker"}},
		{ID: "b", Skills: []string{"Python", "React"}},
		{ID: "c", Skills: []string{"Kubernetes"}},
		{ID: "d", Skills: []string{"Python", "React"}},
	}
	ranked := RankByJaccard([]string{"python", "react"}, candidates)

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
	assert.Equal(t, 100, ranked[0].Percentage)
	assert.Equal(t, []string{"python", "react"}, ranked[0].Matched)
}
