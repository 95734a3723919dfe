package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"veridoc/internal/platform/config"
	"veridoc/internal/verification/models"
	"veridoc/pkg/requestcontext"
)

// KafkaEmitter publishes events to two topics: per-artifact results and
// terminal case summaries. Records are keyed by subject so all events for a
// subject land on one partition in order.
type KafkaEmitter struct {
	client       *kgo.Client
	resultTopic  string
	summaryTopic string
	logger       *slog.Logger
}

type KafkaOption func(*KafkaEmitter)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(e *KafkaEmitter) {
		e.logger = logger
	}
}

func NewKafkaEmitter(cfg config.KafkaConfig, opts ...KafkaOption) (*KafkaEmitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	e := &KafkaEmitter{
		client:       client,
		resultTopic:  cfg.ResultTopic,
		summaryTopic: cfg.SummaryTopic,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EnsureTopics creates the emitter's topics when they do not exist yet.
// Called once at startup; an already-existing topic is not an error.
func (e *KafkaEmitter) EnsureTopics(ctx context.Context) error {
	admin := kadm.NewClient(e.client)

	resps, err := admin.CreateTopics(ctx, 3, 1, nil, e.resultTopic, e.summaryTopic)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

func (e *KafkaEmitter) EmitArtifactResult(ctx context.Context, result models.ArtifactResult) error {
	event := toArtifactEvent(result, requestcontext.Now(ctx))
	return e.produce(ctx, e.resultTopic, event.SubjectID, event)
}

func (e *KafkaEmitter) EmitCaseSummary(ctx context.Context, summary models.CaseSummary) error {
	event := toSummaryEvent(summary, requestcontext.Now(ctx))
	return e.produce(ctx, e.summaryTopic, event.SubjectID, event)
}

func (e *KafkaEmitter) produce(ctx context.Context, topic, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := e.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (e *KafkaEmitter) Close() {
	e.client.Close()
}
