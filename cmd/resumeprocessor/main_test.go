package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/corpus"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tika:
  server_url: http://127.0.0.1:9998
corpus:
  source: none
`), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, constants.Version)
}

func TestBuildCorpusCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	input := filepath.Join(dir, "resumes")
	output := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "a.txt"), []byte("Python developer using Docker"), 0o644))

	out, err := run(t, "build-corpus", "-c", cfgPath, "--input", input, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Total resumes processed: 1")

	assert.FileExists(t, filepath.Join(output, corpus.ProcessedFile))
	assert.FileExists(t, filepath.Join(output, corpus.TrainingFile))
}

func TestMatchCommand_RequiresDescription(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	resume := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(resume, []byte("python"), 0o644))

	_, err := run(t, "match", "-c", cfgPath, resume)
	assert.Error(t, err)
}
