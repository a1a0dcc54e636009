// Package relay fans events out between server replicas over Kafka. Each
// replica publishes every event it produces and consumes everyone else's,
// feeding them into its local hub so sessions connected anywhere see the
// same stream. Kafka is transport here, not storage: events are fire and
// forget and are never replayed into board state.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/bus"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

type envelope struct {
	Instance     string          `json:"instance"`
	Name         string          `json:"event"`
	TargetUserID string          `json:"target_user_id,omitempty"`
	Payload      json.RawMessage `json:"data"`
}

// Relay wraps a local bus and mirrors events across replicas. It implements
// bus.Bus; when Kafka is not configured it degrades to local-only delivery.
type Relay struct {
	instanceID string
	local      bus.Bus
	brokers    []string
	topic      string
	partitions int
	writer     *kafka.Writer
}

// New returns a relay around local. brokers may be empty, in which case
// Publish only delivers locally and Run is a no-op.
func New(local bus.Bus, brokers []string, topic string, partitions int, instanceID string) *Relay {
	r := &Relay{
		instanceID: instanceID,
		local:      local,
		brokers:    brokers,
		topic:      topic,
		partitions: partitions,
	}
	if len(brokers) > 0 {
		r.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 0,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
		}
	}
	return r
}

// EnsureTopic creates the event topic if missing (idempotent). Failure is not
// fatal; the broker may auto-create or the topic may already exist.
func (r *Relay) EnsureTopic(ctx context.Context) {
	if len(r.brokers) == 0 {
		return
	}
	conn, err := kafka.Dial("tcp", r.brokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             r.topic,
		NumPartitions:     r.partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", r.topic, "partitions", r.partitions)
}

// Publish delivers e to local sessions immediately, then mirrors it to the
// other replicas. Local delivery never waits on Kafka.
func (r *Relay) Publish(ctx context.Context, e bus.Event) {
	r.local.Publish(ctx, e)
	if r.writer == nil {
		return
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		logger.Error(ctx, "Relay marshal payload failed", "error", err, "event", e.Name)
		return
	}
	env := envelope{
		Instance:     r.instanceID,
		Name:         e.Name,
		TargetUserID: e.TargetUserID,
		Payload:      payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		logger.Error(ctx, "Relay marshal envelope failed", "error", err, "event", e.Name)
		return
	}
	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Name),
		Value: value,
	})
	if err != nil {
		logger.Error(ctx, "Relay publish failed", "error", err, "event", e.Name)
	}
}

// Run consumes the event topic until ctx is done. Every replica reads with
// its own consumer group so each one sees the full stream; the instance id
// in the envelope keeps a replica from re-delivering its own events.
func (r *Relay) Run(ctx context.Context) {
	if len(r.brokers) == 0 {
		logger.Info(ctx, "Relay disabled (no Kafka brokers)")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  r.brokers,
		Topic:    r.topic,
		GroupID:  "board-relay-" + r.instanceID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Relay consumer started", "topic", r.topic, "instance", r.instanceID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Relay fetch failed", "error", err)
			continue
		}
		if err := r.handle(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Relay handle failed", "error", err, "payload", string(msg.Value))
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Relay commit failed", "error", err)
		}
	}
}

func (r *Relay) handle(ctx context.Context, value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	if env.Instance == r.instanceID {
		return nil
	}
	r.local.Publish(ctx, bus.Event{
		Name:         env.Name,
		TargetUserID: env.TargetUserID,
		Payload:      env.Payload,
	})
	return nil
}
