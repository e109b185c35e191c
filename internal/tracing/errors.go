package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType span 上的 error.type 取值
type ErrorType string

const (
	ErrorTypeDB         ErrorType = "db"
	ErrorTypeRedis      ErrorType = "redis"
	ErrorTypeRabbitMQ   ErrorType = "rabbitmq"
	ErrorTypeStorage    ErrorType = "object_storage"
	ErrorTypeModel      ErrorType = "model"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external_system"
)

// MessagingFailure 消息投递失败的类别
type MessagingFailure string

const (
	FailureNack           MessagingFailure = "nack"
	FailureConfirmTimeout MessagingFailure = "confirm_timeout"
	FailureHandler        MessagingFailure = "handler_error"
)

// RecordError 记录错误并把 span 标记为失败，attrs 会一并写入
func RecordError(span trace.Span, err error, errorType ErrorType, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", Truncate(err.Error(), maxAttrLen)),
	)
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordMessagingFailure 记录 RabbitMQ 发布或消费失败
func RecordMessagingFailure(span trace.Span, messageID string, failure MessagingFailure, detail string) {
	if span == nil {
		return
	}
	msg := string(failure)
	if detail != "" {
		msg = msg + ": " + detail
	}
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeRabbitMQ)),
		attribute.String("messaging.message_id", messageID),
		attribute.String("messaging.failure", string(failure)),
		attribute.Bool("messaging.rabbitmq.confirmed", false),
	)
	span.SetStatus(codes.Error, msg)
}
