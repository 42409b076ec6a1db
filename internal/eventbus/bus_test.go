package eventbus

import (
	"context"
	"errors"
	"testing"
)

func TestBusPublishBroadcast(t *testing.T) {
	bus := NewAnalysisEventBus()
	calledA := false
	calledB := false

	bus.Subscribe(TaskSucceeded, func(ctx context.Context, event AnalysisEvent) error {
		calledA = true
		return nil
	})
	bus.Subscribe(TaskSucceeded, func(ctx context.Context, event AnalysisEvent) error {
		calledB = true
		return nil
	})

	if err := bus.Emit(context.Background(), AnalysisEvent{Type: TaskSucceeded, TaskKey: "needs"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !calledA || !calledB {
		t.Fatalf("expected handlers to be called")
	}
}

func TestBusOnlyMatchingType(t *testing.T) {
	bus := NewAnalysisEventBus()
	called := false
	bus.Subscribe(TaskFailed, func(ctx context.Context, event AnalysisEvent) error {
		called = true
		return nil
	})

	if err := bus.Emit(context.Background(), AnalysisEvent{Type: TaskStarted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("handler for another type should not be called")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewAnalysisEventBus()
	called := false
	unsubscribe := bus.Subscribe(AnalysisStarted, func(ctx context.Context, event AnalysisEvent) error {
		called = true
		return nil
	})
	unsubscribe()

	if err := bus.Emit(context.Background(), AnalysisEvent{Type: AnalysisStarted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("expected handler to be unsubscribed")
	}
}

func TestBusPublishJoinErrors(t *testing.T) {
	bus := NewAnalysisEventBus()
	bus.Subscribe(AnalysisFailed, func(ctx context.Context, event AnalysisEvent) error {
		return errors.New("err-a")
	})
	bus.Subscribe(AnalysisFailed, func(ctx context.Context, event AnalysisEvent) error {
		return errors.New("err-b")
	})

	if err := bus.Emit(context.Background(), AnalysisEvent{Type: AnalysisFailed}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmitSetsTimestampAndNilBus(t *testing.T) {
	bus := NewAnalysisEventBus()
	var got AnalysisEvent
	bus.Subscribe(TaskStarted, func(ctx context.Context, event AnalysisEvent) error {
		got = event
		return nil
	})
	_ = bus.Emit(context.Background(), AnalysisEvent{Type: TaskStarted})
	if got.At.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	var nilBus *AnalysisEventBus
	if err := nilBus.Emit(context.Background(), AnalysisEvent{Type: TaskStarted}); err != nil {
		t.Fatalf("nil bus should be a no-op, got %v", err)
	}
}
