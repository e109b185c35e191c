package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProviderDisabled(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(0))
	assert.Equal(t, 1.0, sampleRatio(3))
	assert.Equal(t, 0.25, sampleRatio(0.25))
}

func TestBuildResource(t *testing.T) {
	res := buildResource(Config{ServiceVersion: "1.2.0"})
	var name string
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" {
			name = kv.Value.AsString()
		}
	}
	assert.Equal(t, "resume-screening-go", name)
}

func TestRecordError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"), ErrorTypeModel)
	RecordError(span, nil, ErrorTypeModel)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)

	found := false
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "error.type" && kv.Value.AsString() == "model" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecordMessagingFailure(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	_, span := tp.Tracer("test").Start(context.Background(), "publish")
	RecordMessagingFailure(span, "msg-1", FailureConfirmTimeout, "5s")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "confirm_timeout: 5s", spans[0].Status().Description)
}

func TestTruncateAndMask(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...xyz", Truncate("abcdefghijklmnopqrstuvwxyz", 9))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestSafeDocumentName(t *testing.T) {
	assert.Equal(t, "张*.pdf", SafeDocumentName("张三.PDF"))
	assert.Equal(t, "al********me.docx", SafeDocumentName("/tmp/alice_resume.docx"))
	assert.LessOrEqual(t, len([]rune(SafeKey(strings.Repeat("k", 500)))), maxKeyLen)
}
