package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/config"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/dataset"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
)

// Publisher produces snapshot refresh messages to the snapshot topic. The
// service itself only consumes; publishing is for the data generator and
// integration tests.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSnapshot serializes and publishes one full snapshot refresh.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap dataset.Snapshot) error {
	msg, err := serializeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	p.logger.Info("snapshot published",
		"version", snap.Version,
		"months", len(snap.Months),
		"records", len(snap.Records),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeSnapshot marshals a snapshot into its refresh wire form. The key
// is constant so all refreshes land on one partition and stay ordered.
func serializeSnapshot(snap dataset.Snapshot) (kafkago.Message, error) {
	payload := struct {
		GeneratedAt time.Time            `json:"generated_at"`
		Months      []string             `json:"months"`
		Records     []domain.PanelRecord `json:"records"`
	}{
		GeneratedAt: snap.GeneratedAt,
		Months:      snap.Months,
		Records:     snap.Records,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte("theft-panel"),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "generated_at", Value: []byte(snap.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
