package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	closer, err := Init(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	l := Component("processor")
	l.Info().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"component":"processor"`))
	assert.True(t, strings.Contains(string(data), `"message":"hello"`))
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	_, err := Init(Config{Level: "info"})
	require.NoError(t, err)

	l := Ctx(context.Background())
	require.NotNil(t, l)
	assert.NotEqual(t, "disabled", l.GetLevel().String())

	ctx := WithRequestID(context.Background(), "req-1")
	assert.NotNil(t, Ctx(ctx))
}
