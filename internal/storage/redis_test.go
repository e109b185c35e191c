package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/types"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisWithClient(client, ttl), mr
}

func TestRedisAnalysisCache_RoundTripWithTTL(t *testing.T) {
	r, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	_, found, err := r.GetAnalysis(ctx, "md5:fp")
	require.NoError(t, err)
	assert.False(t, found)

	want := &types.AnalysisResult{Filename: "a.pdf", Skills: []string{"Go"}, Score: 5, Method: types.MethodHybrid}
	require.NoError(t, r.SetAnalysis(ctx, "md5:fp", want))

	key := fmt.Sprintf(constants.KeyAnalysisResult, "md5:fp")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	got, found, err := r.GetAnalysis(ctx, "md5:fp")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.Skills, got.Skills)
	assert.Equal(t, types.MethodHybrid, got.Method)
}

func TestRedisAnalysisCache_CorruptValueIsMiss(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	require.NoError(t, mr.Set(fmt.Sprintf(constants.KeyAnalysisResult, "k"), "{not json"))

	got, found, err := r.GetAnalysis(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRedis_DefaultTTL(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	require.NoError(t, r.SetAnalysis(context.Background(), "k", &types.AnalysisResult{}))
	assert.Equal(t, constants.AnalysisCacheTTL, mr.TTL(fmt.Sprintf(constants.KeyAnalysisResult, "k")))
}

func TestRedis_Lock(t *testing.T) {
	r, _ := newTestRedis(t, time.Minute)
	ctx := context.Background()
	key := fmt.Sprintf(constants.KeyBatchLock, "b1")

	owner, err := r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, owner)

	second, err := r.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second)

	released, err := r.ReleaseLock(ctx, key, "someone-else")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = r.ReleaseLock(ctx, key, owner)
	require.NoError(t, err)
	assert.True(t, released)
}

func TestNewRedisAdapter(t *testing.T) {
	_, err := NewRedisAdapter(nil)
	assert.Error(t, err)
	_, err = NewRedisAdapter(&config.RedisConfig{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	r, err := NewRedisAdapter(&config.RedisConfig{Address: mr.Addr(), AnalysisTTLHours: 2})
	require.NoError(t, err)
	defer r.Close()
	assert.NoError(t, r.Ping(context.Background()))
	assert.Equal(t, 2*time.Hour, r.ttl)
}
