// internal/service/order/infrastructure/kafka_producer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"mercury/internal/pkg/mq"
	"mercury/internal/service/order/domain"
)

const producerName = "order-service"

// OrderEventKafkaProducer 把订单生命周期事件发布到 Kafka。
// 消息以订单号为 key，同一订单的事件保证落在同一分区。
type OrderEventKafkaProducer struct {
	writer *kafka.Writer
}

func NewOrderEventKafkaProducer(writer *kafka.Writer) *OrderEventKafkaProducer {
	return &OrderEventKafkaProducer{writer: writer}
}

func (p *OrderEventKafkaProducer) PublishOrderEvent(ctx context.Context, eventType string, order *domain.Order) error {
	event := domain.OrderEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		TraceID:       traceIDFromContext(ctx),
		CorrelationID: order.ID,
		Payload: domain.OrderEventPayload{
			OrderID:     order.ID,
			CustomerRef: order.CustomerRef,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			Reason:      order.FailureReason,
		},
	}
	for _, line := range order.Lines {
		event.Payload.Lines = append(event.Payload.Lines, domain.OrderEventLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(order.ID), payload)
}

func traceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
