package sink

import (
	"context"
	"testing"
	"time"

	"test-metrics/src/broker"
	"test-metrics/src/contracts"
	"test-metrics/src/logger"
	"test-metrics/src/store"
)

func TestAgent_SavesPublishedRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brk := broker.NewInMemoryBroker()
	defer brk.Close()
	st := store.NewMemoryStore()

	agent := NewAgent(brk, st, contracts.TopicMetrics, logger.NewSilentLogger())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	// Wait for the agent's subscription before publishing.
	waitForSubscriber(t, brk)

	records := []contracts.MetricsRecord{
		{JobID: "j1", TestName: "a"},
		{JobID: "j1", TestName: "b"},
		{JobID: "j2", TestName: "c"},
	}
	if err := Publish(ctx, brk, contracts.TopicMetrics, "run-1", records); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := brk.Publish(ctx, contracts.TopicMetrics, "bad", []byte("not json")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := st.GetRecords(ctx, "run-1")
		if err == nil && len(got) == 3 {
			if got[0].TestName != "a" || got[2].TestName != "c" {
				t.Errorf("records out of order: %+v", got)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for records, last = %d, err = %v", len(got), err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("agent did not stop after cancel")
	}
}

func TestAgent_StopsWhenBrokerCloses(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	agent := NewAgent(brk, store.NewMemoryStore(), contracts.TopicMetrics, logger.NewSilentLogger())

	done := make(chan error, 1)
	go func() { done <- agent.Run(context.Background()) }()
	waitForSubscriber(t, brk)
	brk.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("agent did not stop after broker close")
	}
}

func TestAgent_SubscribeFailure(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	brk.Close()

	agent := NewAgent(brk, store.NewMemoryStore(), contracts.TopicMetrics, logger.NewSilentLogger())
	if err := agent.Run(context.Background()); err == nil {
		t.Error("Run() on closed broker expected error, got nil")
	}
}

// waitForSubscriber blocks until the agent has subscribed.
func waitForSubscriber(t *testing.T, brk *broker.InMemoryBroker) {
	t.Helper()
	deadline := time.After(time.Second)
	for brk.Subscribers(contracts.TopicMetrics) == 0 {
		select {
		case <-deadline:
			t.Fatal("agent never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
