package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"swapwatch/internal/domain"
	"swapwatch/internal/infrastructure/telemetry"
	"swapwatch/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

type ProducerConfig struct {
	Brokers []string
	Topic   string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "swapwatch-popups"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: cfg.Topic}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func (p *Producer) PublishTransactionPopup(ctx context.Context, popup domain.TransactionPopup) error {
	return p.publish(ctx, "publish.txn_popup", popup.Hash, transactionMessage(popup),
		attribute.String("tx.hash", popup.Hash), attribute.Bool("tx.success", popup.Success))
}

func (p *Producer) PublishListUpdate(ctx context.Context, update domain.ListUpdate) error {
	return p.publish(ctx, "publish.list_update", update.ListURL, listUpdateMessage(update),
		attribute.String("list.url", update.ListURL), attribute.Int("list.new_count", update.NewCount))
}

func transactionMessage(popup domain.TransactionPopup) streaming.Message {
	return streaming.Message{
		Type:    streaming.MessageTypeTransaction,
		TxHash:  popup.Hash,
		Success: popup.Success,
		Summary: popup.Summary,
	}
}

func listUpdateMessage(update domain.ListUpdate) streaming.Message {
	return streaming.Message{
		Type:     streaming.MessageTypeListUpdate,
		ListURL:  update.ListURL,
		OldCount: update.OldCount,
		NewCount: update.NewCount,
		Added:    update.Added,
		Removed:  update.Removed,
		Updated:  update.Updated,
		Auto:     update.Auto,
	}
}

func (p *Producer) publish(ctx context.Context, spanName, key string, msg streaming.Message, attrs ...attribute.KeyValue) error {
	ctx, span := otel.Tracer("swapwatch/kafka").Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(attribute.String("messaging.destination", p.topic))
	span.SetAttributes(attrs...)

	message, err := buildMessage(ctx, key, msg)
	if err == nil {
		err = p.writer.WriteMessages(ctx, message)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// buildMessage encodes msg with the trace id of ctx and carries the trace
// context in the record headers.
func buildMessage(ctx context.Context, key string, msg streaming.Message) (kafka.Message, error) {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.TraceID = sc.TraceID().String()
	}
	payload, err := streaming.Encode(msg)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(ctx, &headers)
	return kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	}, nil
}
