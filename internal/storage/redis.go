package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/tracing"
	"resume-screening-go/internal/types"
)

var redisTracer = otel.Tracer("resume-screening-go/storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedisAdapter 连接Redis并挂载 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return NewRedisWithClient(client, time.Duration(cfg.AnalysisTTLHours)*time.Hour), nil
}

// NewRedisWithClient 使用已有客户端创建，ttl 不大于0时使用默认缓存时间
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = constants.AnalysisCacheTTL
	}
	return &Redis{Client: client, ttl: ttl}
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetAnalysis 读取缓存的分析结果
func (r *Redis) GetAnalysis(ctx context.Context, key string) (*types.AnalysisResult, bool, error) {
	if r.Client == nil {
		return nil, false, fmt.Errorf("redis客户端未初始化")
	}
	redisKey := fmt.Sprintf(constants.KeyAnalysisResult, key)

	ctx, span := redisTracer.Start(ctx, "Redis.GetAnalysis", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
		attribute.String("db.redis.key", tracing.SafeKey(redisKey)),
	)

	val, err := r.Client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
		span.SetStatus(codes.Ok, "key not found")
		return nil, false, nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, false, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(val, &result); err != nil {
		// 无法解析的缓存视为未命中
		span.SetAttributes(attribute.Bool("cache.corrupt", true))
		return nil, false, nil
	}
	span.SetAttributes(attribute.Bool("db.redis.key_exists", true))
	span.SetStatus(codes.Ok, "")
	return &result, true, nil
}

// SetAnalysis 写入分析结果缓存
func (r *Redis) SetAnalysis(ctx context.Context, key string, result *types.AnalysisResult) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if result == nil {
		return nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return r.Client.Set(ctx, fmt.Sprintf(constants.KeyAnalysisResult, key), body, r.ttl).Err()
}

// AcquireLock 尝试获取一个分布式锁，未获取到时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := NewRecordID()
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return lockValue, nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end`)

// ReleaseLock 仅当锁仍由 lockValue 持有时释放
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	released, err := releaseLockScript.Run(ctx, r.Client, []string{lockKey}, lockValue).Int64()
	if err != nil {
		return false, err
	}
	return released == 1, nil
}
