package corpus

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/parser"
	"resume-screening-go/internal/reference"
	"resume-screening-go/internal/skills"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	vocab, err := skills.NewVocabulary([]string{"python", "docker", "sql", "java"})
	require.NoError(t, err)
	return NewBuilder(parser.NewDocumentExtractor(nil), skills.NewLexicalExtractor(vocab))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProcessDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "Python and Docker with SQL")
	writeFile(t, filepath.Join(dir, "nested", "b.txt"), "Java developer")
	writeFile(t, filepath.Join(dir, "notes.md"), "python")
	// 未配置PDF解析器时计为失败
	writeFile(t, filepath.Join(dir, "c.pdf"), "%PDF-1.4")

	b := newTestBuilder(t)
	processed, failed, err := b.ProcessDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	require.Len(t, processed, 2)

	assert.Equal(t, "a.txt", processed[0].Filename)
	assert.Equal(t, ".txt", processed[0].FileType)
	assert.Equal(t, []string{"Python", "Docker", "Sql"}, processed[0].Skills)
	assert.Equal(t, 3, processed[0].SkillsCount)
	assert.Equal(t, filepath.Join(dir, "a.txt"), processed[0].OriginalPath)

	assert.Equal(t, "b.txt", processed[1].Filename)
	assert.Equal(t, []string{"Java"}, processed[1].Skills)
}

func TestProcessFile_TruncatesText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long.txt")
	writeFile(t, path, "python "+strings.Repeat("x", 2000))

	rec, err := newTestBuilder(t).ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, []rune(rec.Text), maxTextLen+3)
	assert.True(t, strings.HasSuffix(rec.Text, "..."))
	assert.Equal(t, []string{"Python"}, rec.Skills)
}

func TestSummarize(t *testing.T) {
	processed := []ProcessedResume{
		{Skills: []string{"Python", "Docker"}},
		{Skills: []string{"Python"}},
		{Skills: []string{}},
	}
	s := Summarize(processed, 2)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 3, s.TotalSkills)
	assert.InDelta(t, 1.0, s.AverageSkills, 1e-9)
	assert.Equal(t, 2, s.UniqueSkills)
	assert.Equal(t, []string{"Docker", "Python"}, s.SampleSkills)

	empty := Summarize(nil, 0)
	assert.Zero(t, empty.AverageSkills)
	assert.Empty(t, empty.SampleSkills)
}

func TestWriteFiles_RoundTripsAsCorpus(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	processed := []ProcessedResume{
		{Filename: "a.txt", FileType: ".txt", Text: "python dev", Skills: []string{"Python"}, SkillsCount: 1},
	}
	training, err := WriteFiles(out, processed)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(out, ProcessedFile))
	require.NoError(t, err)
	var back []ProcessedResume
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, processed, back)

	samples, err := reference.FileCorpusLoader{Path: filepath.Join(out, TrainingFile)}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 1, samples[0].Label)
	assert.Equal(t, []string{"Python"}, samples[0].Skills)

	decoded, err := reference.DecodeCorpus(training)
	require.NoError(t, err)
	assert.Equal(t, samples, decoded)
}
