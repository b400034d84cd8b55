// cmd/notification-service/main.go
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercury/internal/pkg/bootstrap"
	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/mq"
	"mercury/internal/pkg/tracing"
	orderdomain "mercury/internal/service/order/domain"
)

const (
	serviceName     = "notification-service"
	orderEventTopic = "order-events"
	consumerGroupID = "notification-group"
)

var tracer = otel.Tracer(serviceName)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer tp.Shutdown(context.Background())

	reader := mq.NewKafkaReader(cfg.Infra.KafkaBrokers, orderEventTopic, consumerGroupID)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	logger.Logger.Info().Str("topic", orderEventTopic).Msg("notification service consuming order events")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Logger.Info().Msg("notification service shutting down")
				return
			}
			logger.Logger.Error().Err(err).Msg("could not read message")
			continue
		}
		go processOrderEvent(msg)
	}
}

// processOrderEvent 消费一条订单事件并发送对应的用户通知。
func processOrderEvent(msg kafka.Message) {
	// 从消息头恢复链路，接上生产侧的 trace
	ctx := mq.ExtractTraceContext(context.Background(), msg)

	ctx, span := tracer.Start(ctx, "notification-service.ProcessOrderEvent",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		),
	)
	defer span.End()

	var event orderdomain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unmarshal failed")
		logger.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal order event")
		return
	}

	span.SetAttributes(
		attribute.String("order.id", event.Payload.OrderID),
		attribute.String("event.type", event.EventType),
	)

	switch event.EventType {
	case orderdomain.EventOrderConfirmed:
		logger.Ctx(ctx).Info().
			Str("order_id", event.Payload.OrderID).
			Str("customer_ref", event.Payload.CustomerRef).
			Str("total", event.Payload.TotalAmount.String()).
			Msg("sending order confirmation notification")
	case orderdomain.EventOrderFailed:
		logger.Ctx(ctx).Info().
			Str("order_id", event.Payload.OrderID).
			Str("customer_ref", event.Payload.CustomerRef).
			Str("reason", event.Payload.Reason).
			Msg("sending order failure notification")
	default:
		logger.Ctx(ctx).Warn().Str("event_type", event.EventType).Msg("unknown order event type, skipping")
		return
	}

	span.AddEvent("notification dispatched")
}
