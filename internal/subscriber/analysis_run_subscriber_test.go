package subscriber

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/eventbus"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/repository"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/statemachine"
)

func newRunRepo(t *testing.T) repository.AnalysisRunRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db error: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.AnalysisRun{}); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repository.NewAnalysisRunRepository(db)
}

func TestAnalysisRunSubscriberSucceeded(t *testing.T) {
	repo := newRunRepo(t)
	bus := eventbus.NewAnalysisEventBus()
	NewAnalysisRunSubscriber(repo).Register(bus)
	ctx := context.Background()

	if err := bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisStarted, RunID: "run-1", CityID: 3, CityName: "Baytown City"}); err != nil {
		t.Fatalf("started event error: %v", err)
	}
	run, err := repo.GetByRunID("run-1")
	if err != nil {
		t.Fatalf("get run error: %v", err)
	}
	if run.Status != model.AnalysisStatusRunning || run.CityID != 3 {
		t.Fatalf("unexpected run after start: %+v", run)
	}

	if err := bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisSucceeded, RunID: "run-1", Reports: 4, Duration: time.Second}); err != nil {
		t.Fatalf("succeeded event error: %v", err)
	}
	run, err = repo.GetByRunID("run-1")
	if err != nil {
		t.Fatalf("get run error: %v", err)
	}
	if run.Status != model.AnalysisStatusSucceeded || run.Reports != 4 || run.CompletedAt == nil {
		t.Fatalf("unexpected run after success: %+v", run)
	}
}

func TestAnalysisRunSubscriberFailed(t *testing.T) {
	repo := newRunRepo(t)
	bus := eventbus.NewAnalysisEventBus()
	NewAnalysisRunSubscriber(repo).Register(bus)
	ctx := context.Background()

	_ = bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisStarted, RunID: "run-2", CityID: 1, CityName: "Seabrook City"})
	longErr := errors.New(strings.Repeat("x", 2000))
	if err := bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisFailed, RunID: "run-2", Err: longErr}); err != nil {
		t.Fatalf("failed event error: %v", err)
	}

	run, err := repo.GetByRunID("run-2")
	if err != nil {
		t.Fatalf("get run error: %v", err)
	}
	if run.Status != model.AnalysisStatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
	if len(run.ErrorMsg) != errorMsgLimit {
		t.Fatalf("expected error message truncated to %d, got %d", errorMsgLimit, len(run.ErrorMsg))
	}
}

func TestAnalysisRunSubscriberUnknownRun(t *testing.T) {
	repo := newRunRepo(t)
	bus := eventbus.NewAnalysisEventBus()
	NewAnalysisRunSubscriber(repo).Register(bus)

	err := bus.Emit(context.Background(), eventbus.AnalysisEvent{Type: eventbus.AnalysisSucceeded, RunID: "missing"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalysisRunSubscriberTaskFailedIsLogged(t *testing.T) {
	bus := eventbus.NewAnalysisEventBus()
	NewAnalysisRunSubscriber(newRunRepo(t)).Register(bus)

	if err := bus.Emit(context.Background(), eventbus.AnalysisEvent{Type: eventbus.TaskFailed, RunID: "run-3", TaskKey: "aid_dispatch", Err: errors.New("boom")}); err != nil {
		t.Fatalf("task failed event should not error: %v", err)
	}
}

func TestAnalysisRunSubscriberRejectsSecondCompletion(t *testing.T) {
	repo := newRunRepo(t)
	bus := eventbus.NewAnalysisEventBus()
	NewAnalysisRunSubscriber(repo).Register(bus)
	ctx := context.Background()

	_ = bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisStarted, RunID: "run-4", CityID: 2})
	if err := bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisSucceeded, RunID: "run-4", Reports: 4}); err != nil {
		t.Fatalf("succeeded event error: %v", err)
	}

	err := bus.Emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisFailed, RunID: "run-4", Err: errors.New("late")})
	var target *statemachine.InvalidStateTransitionError
	if !errors.As(err, &target) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	run, _ := repo.GetByRunID("run-4")
	if run.Status != model.AnalysisStatusSucceeded {
		t.Fatalf("status should stay succeeded, got %s", run.Status)
	}
}
