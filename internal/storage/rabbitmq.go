package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/tracing"
)

var mqTracer = otel.Tracer("resume-screening-go/storage/rabbitmq")

// publishConfirmTimeout 等待 broker 确认的上限
const publishConfirmTimeout = 5 * time.Second

// MessageQueue 消息队列接口
type MessageQueue interface {
	// 发布消息
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error

	// 发布JSON格式消息
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error

	// 关闭连接
	Close() error
}

// 确保RabbitMQ实现了MessageQueue接口
var _ MessageQueue = (*RabbitMQ)(nil)

// MessageHandler 消息处理函数；返回 nil 确认消息，返回错误时按 requeue 决定是否重新入队
type MessageHandler func(ctx context.Context, body []byte) error

// PermanentError 包装后的错误不会重新入队
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent 标记一个不可重试的处理错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// RabbitMQ 提供消息队列功能
type RabbitMQ struct {
	conn         *amqp.Connection
	pubCh        *amqp.Channel
	publishMutex sync.Mutex // amqp channel 不支持并发发布
	cfg          *config.RabbitMQConfig
	log          zerolog.Logger
}

// NewRabbitMQ 创建RabbitMQ客户端并开启发布确认
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("开启发布确认失败: %w", err)
	}

	mq := &RabbitMQ{
		conn:  conn,
		pubCh: ch,
		cfg:   cfg,
		log:   logger.Component("rabbitmq"),
	}
	mq.log.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	if r.pubCh != nil {
		_ = r.pubCh.Close()
	}
	return r.conn.Close()
}

// DeclareTopology 声明分析交换机、批量队列及其绑定
func (r *RabbitMQ) DeclareTopology() error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	defer ch.Close()

	if r.cfg.AnalysisExchange == "" || r.cfg.AnalysisExchange == "amq.default" {
		return fmt.Errorf("exchange名称无效: '%s'", r.cfg.AnalysisExchange)
	}
	if err := ch.ExchangeDeclare(r.cfg.AnalysisExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	if _, err := ch.QueueDeclare(r.cfg.BatchQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	if err := ch.QueueBind(r.cfg.BatchQueue, r.cfg.BatchRoutingKey, r.cfg.AnalysisExchange, false, nil); err != nil {
		return fmt.Errorf("绑定队列到exchange失败: %w", err)
	}

	r.log.Info().
		Str("exchange", r.cfg.AnalysisExchange).
		Str("queue", r.cfg.BatchQueue).
		Str("routing_key", r.cfg.BatchRoutingKey).
		Msg("已声明消息拓扑")
	return nil
}

// PublishMessage 发布消息并等待 broker 确认
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	ctx, span := mqTracer.Start(ctx, "RabbitMQ.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", exchangeName),
		attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
		attribute.Int("messaging.message.body.size", len(message)),
	)

	var deliveryMode uint8 = amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}
	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, amqpHeaderCarrier(headers))

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	confirmation, err := r.pubCh.PublishWithDeferredConfirmWithContext(ctx, exchangeName, routingKey, false, false,
		amqp.Publishing{
			Headers:      headers,
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return fmt.Errorf("发布消息失败: %w", err)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, publishConfirmTimeout)
	defer cancel()
	acked, err := confirmation.WaitContext(confirmCtx)
	if err != nil {
		tracing.RecordMessagingFailure(span, routingKey, tracing.FailureConfirmTimeout, publishConfirmTimeout.String())
		return fmt.Errorf("等待发布确认超时: %w", err)
	}
	if !acked {
		tracing.RecordMessagingFailure(span, routingKey, tracing.FailureNack, "")
		return fmt.Errorf("消息被broker拒绝: %s/%s", exchangeName, routingKey)
	}
	return nil
}

// PublishJSON 发布JSON格式的消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// StartConsumer 以 workers 个协程消费队列，ctx 取消后停止并等待处理中的消息完成
func (r *RabbitMQ) StartConsumer(ctx context.Context, queueName string, prefetchCount, workers int, handler MessageHandler) (<-chan struct{}, error) {
	if workers <= 0 {
		workers = 1
	}
	if prefetchCount < workers {
		prefetchCount = workers
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("设置QoS失败: %w", err)
	}
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("注册消费者失败: %w", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						r.log.Warn().Str("queue", queueName).Msg("RabbitMQ通道已关闭")
						return
					}
					r.handleDelivery(ctx, d, handler)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		_ = ch.Close()
		r.log.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")
		close(done)
	}()

	r.log.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Int("workers", workers).Msg("RabbitMQ消费者已启动")
	return done, nil
}

func (r *RabbitMQ) handleDelivery(ctx context.Context, d amqp.Delivery, handler MessageHandler) {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, amqpHeaderCarrier(d.Headers))
	msgCtx, span := mqTracer.Start(msgCtx, "RabbitMQ.Consume", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.rabbitmq.destination.routing_key", d.RoutingKey),
		attribute.Bool("messaging.rabbitmq.redelivered", d.Redelivered),
	)

	err := handler(msgCtx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			r.log.Error().Err(ackErr).Msg("确认消息失败")
		}
		return
	}

	// 永久错误或已重投过一次的消息不再入队
	var perm *PermanentError
	requeue := !errors.As(err, &perm) && !d.Redelivered
	tracing.RecordMessagingFailure(span, d.MessageId, tracing.FailureHandler, err.Error())
	r.log.Warn().Err(err).Bool("requeue", requeue).Msg("消息处理失败")
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		r.log.Error().Err(nackErr).Msg("拒绝消息失败")
	}
}

// amqpHeaderCarrier 让 OpenTelemetry 传播器读写 AMQP 消息头
type amqpHeaderCarrier amqp.Table

var _ propagation.TextMapCarrier = amqpHeaderCarrier{}

func (c amqpHeaderCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c amqpHeaderCarrier) Set(key, value string) {
	c[key] = value
}

func (c amqpHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
