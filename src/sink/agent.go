// Package sink moves metrics records between the broker and the store.
// Collectors publish one RecordEnvelope per record; the Agent consumes them
// and persists each record under its run.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"test-metrics/src/broker"
	"test-metrics/src/contracts"
	"test-metrics/src/logger"
	"test-metrics/src/store"
)

// DefaultGroup is the consumer group of the sink.
const DefaultGroup = "test-metrics-sink"

// Agent consumes record envelopes and saves them to a store.
type Agent struct {
	broker broker.Broker
	store  store.Store
	logger logger.Logger
	topic  string
	group  string
}

// NewAgent creates a sink agent for topic.
func NewAgent(brk broker.Broker, st store.Store, topic string, log logger.Logger) *Agent {
	return &Agent{
		broker: brk,
		store:  st,
		logger: log,
		topic:  topic,
		group:  DefaultGroup,
	}
}

// Run consumes until the subscription closes or ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[Sink] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, a.topic, a.group)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", a.topic, err)
	}

	a.logger.Info("[Sink] Listening for records on '%s' topic...", a.topic)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[Sink] Message channel closed, shutting down")
				return nil
			}

			if err := a.processMessage(ctx, msg); err != nil {
				a.logger.Error("[Sink] Error processing record: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[Sink] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (a *Agent) processMessage(ctx context.Context, msg broker.Message) error {
	var env contracts.RecordEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("failed to unmarshal envelope at offset %d: %w", msg.Offset, err)
	}
	if env.RunID == "" {
		return fmt.Errorf("envelope at offset %d has no run id", msg.Offset)
	}

	if err := a.store.SaveRecords(ctx, env.RunID, []contracts.MetricsRecord{env.Record}); err != nil {
		return err
	}

	a.logger.Debug("[Sink] Saved %s/%s for run %s", env.Record.JobID, env.Record.TestName, env.RunID)
	return nil
}

// Publish sends every record of a run as its own envelope, keyed by job ID
// so that a job's records stay on one partition in order.
func Publish(ctx context.Context, brk broker.Broker, topic, runID string, records []contracts.MetricsRecord) error {
	for _, rec := range records {
		data, err := json.Marshal(contracts.RecordEnvelope{RunID: runID, Record: rec})
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := brk.Publish(ctx, topic, rec.JobID, data); err != nil {
			return fmt.Errorf("failed to publish record: %w", err)
		}
	}
	return nil
}
