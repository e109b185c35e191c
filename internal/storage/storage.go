package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖。未配置的组件为 nil
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// NewStorage 初始化已配置的存储组件。部分组件失败时记录警告，仅当配置了组件且全部失败时返回错误
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	log := logger.Component("storage")
	storage := &Storage{}
	var (
		err        error
		configured int
		initErrors []string
	)

	if cfg.MinIO.Endpoint != "" {
		configured++
		storage.MinIO, err = NewMinIO(ctx, &cfg.MinIO)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		configured++
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err == nil {
			err = storage.RabbitMQ.DeclareTopology()
		}
		if err != nil {
			log.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
			if storage.RabbitMQ != nil {
				_ = storage.RabbitMQ.Close()
				storage.RabbitMQ = nil
			}
		}
	}

	if cfg.MySQL.Host != "" {
		configured++
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		configured++
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if configured > 0 && len(initErrors) == configured {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		log.Warn().Str("failed", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	log := logger.Component("storage")
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}

// AsyncBatchReady 异步批量分析需要对象存储、消息队列和数据库同时可用
func (s *Storage) AsyncBatchReady() bool {
	return s != nil && s.MinIO != nil && s.RabbitMQ != nil && s.MySQL != nil
}
