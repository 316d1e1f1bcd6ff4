// Package kafka adapts segmentio/kafka-go to the snapshot refresh loop:
// a Reader that feeds refresh messages in, and a Publisher that writes
// snapshots out for tooling and tests.
package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/config"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/refresh"
)

// Reader consumes snapshot refresh messages from a Kafka topic.
// It implements refresh.Source.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured snapshot topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaSnapshotTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks until the next refresh message arrives. Offsets are committed
// explicitly through the message's Commit hook, so a crash mid-apply replays
// the snapshot rather than losing it.
func (r *Reader) Fetch(ctx context.Context) (refresh.Message, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return refresh.Message{}, err
	}
	out := mapMessage(msg)
	out.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return out, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into a refresh message. The Commit
// hook is attached by the caller, which still holds the original message.
func mapMessage(msg kafkago.Message) refresh.Message {
	return refresh.Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
