package log

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/pkg/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger traces a named operation through its steps.
// Steps and successes are logged at debug level, errors at error level.
//
//	tracer := log.NewDebugLogger("contract_service").
//		WithContext(ctx).
//		Operation("apply_action").
//		WithUUID("contract_id", id).
//		Build()
//	tracer.Step("contract_loaded").WithString("status", c.Status).Log()
//	tracer.Success().Log()
type StructuredLogger struct {
	name string
	ctx  context.Context
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name, ctx: context.Background()}
}

// WithContext returns a copy bound to ctx. The request id found in ctx is attached to every entry.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	return &StructuredLogger{name: l.name, ctx: ctx}
}

func (l *StructuredLogger) Operation(name string) *OperationBuilder {
	fields := []zap.Field{zap.String("operation", name)}
	if id := requestid.FromContext(l.ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return &OperationBuilder{
		logger:    zap.L().Named(l.name),
		operation: name,
		fields:    fields,
	}
}

type OperationBuilder struct {
	logger    *zap.Logger
	operation string
	fields    []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, zap.Bool(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger:    b.logger.With(b.fields...),
		operation: b.operation,
		start:     time.Now(),
	}
}

type OperationTracer struct {
	logger    *zap.Logger
	operation string
	start     time.Time
}

func (t *OperationTracer) Step(name string) *LogEvent {
	return t.event(zapcore.DebugLevel, fmt.Sprintf("%s: %s", t.operation, name), zap.String("step", name))
}

func (t *OperationTracer) Success() *LogEvent {
	return t.event(zapcore.DebugLevel, fmt.Sprintf("%s: success", t.operation), zap.Duration("duration", time.Since(t.start)))
}

func (t *OperationTracer) Error(err error) *LogEvent {
	return t.event(zapcore.ErrorLevel, fmt.Sprintf("%s: failed", t.operation), zap.Error(err), zap.Duration("duration", time.Since(t.start)))
}

func (t *OperationTracer) event(lvl zapcore.Level, msg string, fields ...zap.Field) *LogEvent {
	return &LogEvent{logger: t.logger, level: lvl, msg: msg, fields: fields}
}

// LogEvent is a single entry. Nothing is written until Log is called.
type LogEvent struct {
	logger *zap.Logger
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *LogEvent) WithString(key, value string) *LogEvent {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *LogEvent) WithInt(key string, value int) *LogEvent {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *LogEvent) WithBool(key string, value bool) *LogEvent {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *LogEvent) WithUUID(key string, value uuid.UUID) *LogEvent {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *LogEvent) WithParam(key string, value any) *LogEvent {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *LogEvent) Log() {
	if ce := e.logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
