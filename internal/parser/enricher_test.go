package parser

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

const sampleEnrichmentJSON = `{
  "skills": ["Python", "Leadership"],
  "strengths": ["Ships quickly"],
  "weaknesses": ["No cloud certification"],
  "experience_summary": "Six years building data platforms",
  "education_summary": "BSc Computer Science",
  "overall_score": 88
}`

func TestBuildEnrichmentPromptTruncates(t *testing.T) {
	long := strings.Repeat("简", 5000)
	prompt := BuildEnrichmentPrompt(long)

	assert.Contains(t, prompt, strings.Repeat("简", maxPromptChars))
	assert.NotContains(t, prompt, strings.Repeat("简", maxPromptChars+1))
	assert.Contains(t, prompt, `"overall_score": 85`)
	assert.Contains(t, prompt, "Return only valid JSON")
}

func TestParseEnrichment(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		e, err := ParseEnrichment("```json\n" + sampleEnrichmentJSON + "\n```")
		require.NoError(t, err)
		assert.Equal(t, []string{"Python", "Leadership"}, e.Skills)
		assert.Equal(t, 88, e.OverallScore)
		assert.Equal(t, "BSc Computer Science", e.EducationSummary)
	})

	t.Run("surrounding prose", func(t *testing.T) {
		e, err := ParseEnrichment("Here you go: " + sampleEnrichmentJSON + " hope it helps")
		require.NoError(t, err)
		assert.Equal(t, "Six years building data platforms", e.ExperienceSummary)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseEnrichment("I cannot help with that")
		assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))

		_, err = ParseEnrichment(`{"skills": "not-a-list"}`)
		assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
	})
}

func TestNoopEnricher(t *testing.T) {
	_, err := NoopEnricher{}.Enrich(context.Background(), "text")
	assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
}

type fakeGenerator struct {
	out    string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestGeminiEnricher(t *testing.T) {
	gen := &fakeGenerator{out: sampleEnrichmentJSON}
	e := newGeminiEnricher(gen, "gemini-test")

	got, err := e.Enrich(context.Background(), "Python developer")
	require.NoError(t, err)
	assert.Equal(t, 88, got.OverallScore)
	assert.Contains(t, gen.prompt, "Python developer")

	gen.err = errors.New("quota exceeded")
	_, err = e.Enrich(context.Background(), "Python developer")
	assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
}

func TestNewGeminiEnricherRequiresKey(t *testing.T) {
	_, err := NewGeminiEnricher(context.Background(), "  ", "", 0)
	assert.Error(t, err)
}

// mockChatModel 实现 model.BaseChatModel，用于测试
type mockChatModel struct {
	content string
	err     error
	last    []*einoschema.Message
}

func (m *mockChatModel) Generate(_ context.Context, input []*einoschema.Message, _ ...model.Option) (*einoschema.Message, error) {
	m.last = input
	if m.err != nil {
		return nil, m.err
	}
	return einoschema.AssistantMessage(m.content, nil), nil
}

func (m *mockChatModel) Stream(context.Context, []*einoschema.Message, ...model.Option) (*einoschema.StreamReader[*einoschema.Message], error) {
	return nil, errors.New("stream not supported")
}

func TestChatModelEnricher(t *testing.T) {
	llm := &mockChatModel{content: "```json\n" + sampleEnrichmentJSON + "\n```"}
	e := NewChatModelEnricher(llm)

	got, err := e.Enrich(context.Background(), "resume text")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ships quickly"}, got.Strengths)
	require.Len(t, llm.last, 2)
	assert.Equal(t, einoschema.System, llm.last[0].Role)
	assert.Contains(t, llm.last[1].Content, "resume text")

	llm.err = errors.New("upstream 503")
	_, err = e.Enrich(context.Background(), "resume text")
	assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))

	_, err = NewChatModelEnricher(nil).Enrich(context.Background(), "x")
	assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
}

type countingEnricher struct {
	calls atomic.Int32
	err   error
}

func (c *countingEnricher) Enrich(context.Context, string) (*types.Enrichment, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &types.Enrichment{OverallScore: 90}, nil
}

func TestResilientEnricherOpensBreaker(t *testing.T) {
	next := &countingEnricher{err: errors.New("connection refused")}
	r := NewResilientEnricher(next, ResilienceConfig{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := r.Enrich(context.Background(), "text")
		assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	_, err := r.Enrich(context.Background(), "text")
	assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
	assert.Equal(t, int32(2), next.calls.Load(), "熔断打开后不应再调用下游")
}

func TestResilientEnricherPassesThrough(t *testing.T) {
	next := &countingEnricher{}
	r := NewResilientEnricher(next, ResilienceConfig{QPM: 6000})

	got, err := r.Enrich(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 90, got.OverallScore)
	assert.Equal(t, gobreaker.StateClosed, r.State())
}

func TestResilientEnricherLimiterHonoursContext(t *testing.T) {
	next := &countingEnricher{}
	r := NewResilientEnricher(next, ResilienceConfig{QPM: 1})

	_, err := r.Enrich(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Enrich(ctx, "second")
	assert.True(t, errors.Is(err, processor.ErrAugmentationUnavailable))
	assert.Equal(t, int32(1), next.calls.Load())
}
