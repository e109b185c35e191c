package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/classifier"
	"resume-screening-go/internal/config"
	"resume-screening-go/internal/parser"
	"resume-screening-go/internal/reference"
	"resume-screening-go/internal/storage"
)

func testConfig() *config.Config {
	cfg := config.Default()
	// 使用 Tika 时构造阶段不访问网络
	cfg.Tika.ServerURL = "http://127.0.0.1:9998"
	return cfg
}

func TestNewEnricher(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	e, err := NewEnricher(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, e, "provider=none 时不创建增强器")

	cfg.Enricher.Provider = "gemini"
	_, err = NewEnricher(ctx, cfg)
	assert.Error(t, err, "缺少 api_key")

	cfg.Enricher.Provider = "qwen"
	cfg.Aliyun.APIKey = "sk-test"
	e, err = NewEnricher(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &parser.ResilientEnricher{}, e)

	cfg.Enricher.Provider = "openai"
	_, err = NewEnricher(ctx, cfg)
	assert.Error(t, err)
}

func TestNewCorpusLoader(t *testing.T) {
	loader, err := NewCorpusLoader(config.CorpusConfig{Source: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, loader)

	loader, err = NewCorpusLoader(config.CorpusConfig{Source: "file", Path: "training_data.json"}, nil)
	require.NoError(t, err)
	assert.Equal(t, reference.FileCorpusLoader{Path: "training_data.json"}, loader)

	_, err = NewCorpusLoader(config.CorpusConfig{Source: "minio"}, &storage.Storage{})
	assert.Error(t, err)
	_, err = NewCorpusLoader(config.CorpusConfig{Source: "mysql"}, nil)
	assert.Error(t, err)
	_, err = NewCorpusLoader(config.CorpusConfig{Source: "s3"}, nil)
	assert.Error(t, err)
}

func TestClassifierOptions(t *testing.T) {
	cfg := config.Default().Classifier
	cfg.Threshold = 0.4
	cfg.MaxFeatures = 100

	o := classifier.DefaultOptions()
	for _, opt := range ClassifierOptions(cfg) {
		opt(&o)
	}
	assert.Equal(t, 0.4, o.Threshold)
	assert.Equal(t, 100, o.MaxFeatures)
	assert.Equal(t, int64(42), o.Seed)
}

func TestBuild_TrainFromFileCorpus(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "training_data.json")
	require.NoError(t, os.WriteFile(corpus, []byte(`[
		{"text": "python developer with django", "skills": ["python", "django"], "label": 1},
		{"text": "java engineer using spring", "skills": ["java"], "label": 1}
	]`), 0o644))

	cfg := testConfig()
	cfg.Corpus.Source = "file"
	cfg.Corpus.Path = corpus

	c, err := Build(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, c.Analyzer)
	assert.Greater(t, c.Vocab.Len(), 0)
	assert.False(t, c.Analyzer.ModelStatus().Trained)

	m, err := c.Analyzer.Retrain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.CorpusSize())
	assert.Equal(t, 2, c.Analyzer.ModelStatus().CorpusSize)
}

func TestBuild_MissingVocabularyFile(t *testing.T) {
	cfg := testConfig()
	cfg.Skills.VocabularyFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err := Build(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
