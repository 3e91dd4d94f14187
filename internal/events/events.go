// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/wire"
)

// TypeOrderCommitted is the event type of a committed order.
const TypeOrderCommitted = "order.committed"

// Publisher announces committed orders. Publishing happens after the unit of
// work committed; a failure never undoes the order.
type Publisher interface {
	OrderCommitted(ctx context.Context, o *order.Order) error
}

// Nop discards events.
type Nop struct{}

func (Nop) OrderCommitted(context.Context, *order.Order) error { return nil }

// messageWriter is the part of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order id, so events
// for one order keep their relative order.
type KafkaPublisher struct {
	w   messageWriter
	now func() time.Time
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		now: time.Now,
	}
}

// OrderCommitted publishes o.
func (p *KafkaPublisher) OrderCommitted(ctx context.Context, o *order.Order) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	EncodeOrderCommitted(e, o, p.now())

	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: append([]byte(nil), e.Bytes()...),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(TypeOrderCommitted)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// EncodeOrderCommitted writes the event envelope for o.
func EncodeOrderCommitted(e *jx.Encoder, o *order.Order, at time.Time) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(TypeOrderCommitted)
	e.FieldStart("occurredAt")
	e.Str(at.UTC().Format(time.RFC3339Nano))
	e.FieldStart("order")
	wire.EncodeOrder(e, o)
	e.ObjEnd()
}
