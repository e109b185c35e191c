package reference

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	assert.Len(t, c.Templates(), 14)
	assert.Len(t, c.Postings(), 5)
	assert.Contains(t, c.VocabularySource(), "Python")
	assert.Contains(t, c.Titles(), "Data Scientist")
}

func TestTemplateByTitle(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	tpl, ok := c.TemplateByTitle("devops")
	require.True(t, ok)
	assert.Equal(t, "DevOps Engineer", tpl.Title)

	tpl, ok = c.TemplateByTitle("machine_learning_engineer")
	require.True(t, ok)
	assert.Equal(t, "Machine Learning Engineer", tpl.Title)

	_, ok = c.TemplateByTitle("astronaut")
	assert.False(t, ok)
	_, ok = c.TemplateByTitle("  ")
	assert.False(t, ok)
}

func TestSkillsForJob(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	assert.Contains(t, c.SkillsForJob("Frontend Developer"), "TypeScript")
	assert.Empty(t, c.SkillsForJob("unknown role"))
}

func TestSearchSkills(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	got := c.SearchSkills("script")
	assert.Contains(t, got, "JavaScript")
	assert.Contains(t, got, "TypeScript")
	assert.Empty(t, c.SearchSkills(""))
}

func TestLoadVocabularySourceExtra(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "extra.txt")
	require.NoError(t, os.WriteFile(path, []byte("# 自定义技能\nHertz\n\n  Eino  \n"), 0o644))

	source, err := c.LoadVocabularySource(path)
	require.NoError(t, err)
	assert.Equal(t, len(c.VocabularySource())+2, len(source))
	assert.Equal(t, "Eino", source[len(source)-1])

	_, err = c.LoadVocabularySource(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestFileCorpusLoader(t *testing.T) {
	dir := t.TempDir()

	samples, err := FileCorpusLoader{Path: filepath.Join(dir, "training_data.json")}.Load(context.Background())
	require.NoError(t, err, "缺失的语料文件应视为空语料")
	assert.Empty(t, samples)

	path := filepath.Join(dir, "training_data.json")
	body := `[{"text":"python developer","skills":["Python"],"label":1},{"text":"  ","skills":["Go"],"label":1}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	samples, err = FileCorpusLoader{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []string{"Python"}, samples[0].Skills)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	_, err = FileCorpusLoader{Path: path}.Load(context.Background())
	assert.Error(t, err)
}
