// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局日志实例，由 Init 初始化。
var Logger zerolog.Logger

func init() {
	// 未调用 Init 的场景（如单元测试）也能直接使用
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 初始化全局日志实例，并附加服务名字段。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回绑定了当前追踪上下文的日志实例。
// 若 ctx 中存在有效 Span，则日志行自动携带 trace_id / span_id，
// 用于将一次下单的全部日志与 Jaeger 链路关联起来。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &Logger
	}
	l := Logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
