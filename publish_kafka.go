package match

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes execution events to a Kafka topic, keyed by symbol
// so each symbol's stream lands on one partition in order.
//
// Writes block on the broker, so it must run behind a RingPublisher rather
// than directly on a book.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// OnEvent implements EventHandler for a RingPublisher consumer.
func (p *KafkaPublisher) OnEvent(ev Event) {
	payload, err := json.Marshal(&ev)
	if err != nil {
		logger.Error("kafka event marshal failed", "error", err, "symbol", ev.Symbol)
		return
	}

	err = p.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(ev.Symbol),
		Value: payload,
	})
	if err != nil {
		logger.Error("kafka write failed",
			"error", err,
			"symbol", ev.Symbol,
			"stream_sequence", ev.StreamSequence)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
