package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-screening-go/internal/api/handler"
	"resume-screening-go/internal/api/router"
	"resume-screening-go/internal/bootstrap"
	"resume-screening-go/internal/config"
	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/metrics"
	"resume-screening-go/internal/outbox"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/storage"
	"resume-screening-go/internal/tracing"
)

var configPath = pflag.StringP("config", "c", "", "配置文件路径")

func main() {
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	logCloser, err := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
	}
	defer logCloser.Close()
	logger.Logger = logger.Logger.With().Str("app", constants.ServiceName).Str("version", constants.Version).Logger()

	// Hertz 日志统一输出到 zerolog
	hlog.SetLogger(hertzzerolog.From(logger.Logger))
	logger.Info().Msg("日志系统初始化成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = constants.ServiceName
	}
	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: constants.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	appMetrics := metrics.New()
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, appMetrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("指标服务异常退出")
			}
		}()
		logger.Info().Str("address", cfg.Metrics.Address).Str("path", cfg.Metrics.Path).Msg("指标服务已启动")
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	logger.Info().Msg("存储服务初始化成功")

	components, err := bootstrap.Build(ctx, cfg, storageManager, appMetrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化分析组件失败")
	}
	logger.Info().Int("vocabulary_size", components.Vocab.Len()).Msg("分析组件初始化成功")

	svc := processor.NewResumeService(components.Analyzer, storageManager, cfg.RabbitMQ, processor.WithBatchMetrics(appMetrics))

	if cfg.Corpus.ShouldTrainOnStartup() {
		if _, err := svc.TrainModel(ctx); err != nil {
			logger.Warn().Err(err).Msg("启动时训练模型失败，使用词法提取")
		}
	}

	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ,
			outbox.WithPollingInterval(config.GetDuration(cfg.RabbitMQ.OutboxPollInterval, 2*time.Second)),
			outbox.WithBatchSize(cfg.RabbitMQ.OutboxBatchSize),
		)
		messageRelay.Start()
		logger.Info().Msg("消息中继服务已启动")
	}

	if svc.AsyncEnabled() {
		if _, err := svc.StartConsumer(ctx); err != nil {
			logger.Fatal().Err(err).Msg("启动批量分析消费者失败")
		}
		logger.Info().Str("queue", cfg.RabbitMQ.BatchQueue).Int("workers", cfg.RabbitMQ.ConsumerWorkers).Msg("批量分析消费者已启动")
	} else {
		logger.Warn().Msg("对象存储、消息队列或数据库未就绪，异步批量分析不可用")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(cfg.MaxUploadBytes()),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, handler.NewHandler(svc, components.Catalog, cfg), router.Options{
		APIKeys: cfg.Auth.APIKeys,
		Metrics: appMetrics,
	})
	logger.Info().Str("address", cfg.Server.Address).Bool("auth", len(cfg.Auth.APIKeys) > 0).Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	// 先停止消费与中继，再关闭 HTTP
	cancel()
	if messageRelay != nil {
		messageRelay.Stop()
		logger.Info().Msg("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}
