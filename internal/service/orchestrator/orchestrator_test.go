package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/eventbus"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    int32
	active   int32
	peak     int32
	contexts map[string]string
	delays   map[string]time.Duration
	errs     map[string]error
	panics   map[string]bool
	blockCtx map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		contexts: make(map[string]string),
		delays:   make(map[string]time.Duration),
		errs:     make(map[string]error),
		panics:   make(map[string]bool),
		blockCtx: make(map[string]bool),
	}
}

func (f *fakeRunner) RunTask(ctx context.Context, run TaskRun) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.contexts[run.Spec.Key] = run.Context
	delay := f.delays[run.Spec.Key]
	err := f.errs[run.Spec.Key]
	shouldPanic := f.panics[run.Spec.Key]
	block := f.blockCtx[run.Spec.Key]
	f.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", err
	}
	return "output of " + run.Spec.Key + " for " + run.CityName, nil
}

func testGraph() Graph {
	consumers := []TaskSpec{
		{Key: "needs", DependsOn: "collect"},
		{Key: "dispatch", DependsOn: "collect"},
		{Key: "resources", DependsOn: "collect"},
		{Key: "damage", DependsOn: "collect"},
	}
	return Graph{
		RunID:     "run-1",
		CityID:    3,
		CityName:  "Baytown City",
		Producer:  TaskSpec{Key: "collect"},
		Consumers: consumers,
	}
}

func newTestExecutor(t *testing.T, runner TaskRunner, bus *eventbus.AnalysisEventBus) *Executor {
	t.Helper()
	e, err := NewExecutor(4, runner, bus)
	require.NoError(t, err)
	t.Cleanup(func() { e.Stop(time.Second) })
	return e
}

func TestRunPassesProducerOutputAndKeepsOrder(t *testing.T) {
	runner := newFakeRunner()
	// 先提交的任务后完成
	runner.delays["needs"] = 60 * time.Millisecond
	runner.delays["dispatch"] = 40 * time.Millisecond
	runner.delays["resources"] = 20 * time.Millisecond
	e := newTestExecutor(t, runner, nil)

	result, err := e.Run(context.Background(), testGraph())
	require.NoError(t, err)
	require.Len(t, result.Outputs, 5)

	keys := []string{"collect", "needs", "dispatch", "resources", "damage"}
	for i, key := range keys {
		assert.Equal(t, key, result.Outputs[i].Key, "结果应按提交顺序排列")
		assert.NoError(t, result.Outputs[i].Err)
	}

	producerOutput := "output of collect for Baytown City"
	assert.Equal(t, "", runner.contexts["collect"])
	for _, key := range keys[1:] {
		assert.Equal(t, producerOutput, runner.contexts[key], "消费者 %s 应收到生产者输出", key)
	}
	assert.Greater(t, atomic.LoadInt32(&runner.peak), int32(1), "消费者应并发执行")
}

func TestRunProducerFailureSkipsConsumers(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["collect"] = errors.New("dossier unavailable")
	e := newTestExecutor(t, runner, nil)

	result, err := e.Run(context.Background(), testGraph())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProducerFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls), "生产者失败后不应执行消费者")
	assert.Error(t, result.Outputs[0].Err)
}

func TestRunConsumerFailureRecordedPerSlot(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["dispatch"] = errors.New("model refused")
	e := newTestExecutor(t, runner, nil)

	result, err := e.Run(context.Background(), testGraph())
	require.NoError(t, err)

	assert.Error(t, result.Outputs[2].Err)
	assert.NoError(t, result.Outputs[1].Err)
	assert.NoError(t, result.Outputs[3].Err)
	assert.NoError(t, result.Outputs[4].Err)

	failed, ok := result.Failed()
	require.True(t, ok)
	assert.Equal(t, "dispatch", failed.Key)
}

func TestRunCancelOnFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["needs"] = errors.New("model refused")
	runner.blockCtx["damage"] = true
	e := newTestExecutor(t, runner, nil)

	g := testGraph()
	g.CancelOnFailure = true

	done := make(chan struct{})
	var result *GraphResult
	go func() {
		result, _ = e.Run(context.Background(), g)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("blocked consumer should be cancelled after a failure")
	}
	assert.True(t, errors.Is(result.Outputs[4].Err, context.Canceled))
}

func TestRunRecoversPanic(t *testing.T) {
	runner := newFakeRunner()
	runner.panics["resources"] = true
	e := newTestExecutor(t, runner, nil)

	result, err := e.Run(context.Background(), testGraph())
	require.NoError(t, err)
	assert.True(t, errors.Is(result.Outputs[3].Err, ErrTaskPanic))
	assert.NoError(t, result.Outputs[4].Err)
}

func TestRunRespectsContextTimeout(t *testing.T) {
	runner := newFakeRunner()
	runner.blockCtx["collect"] = true
	e := newTestExecutor(t, runner, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Run(ctx, testGraph())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRunPublishesTaskEvents(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["damage"] = errors.New("failed")
	bus := eventbus.NewAnalysisEventBus()

	var started, succeeded, failed int32
	bus.Subscribe(eventbus.TaskStarted, func(ctx context.Context, ev eventbus.AnalysisEvent) error {
		atomic.AddInt32(&started, 1)
		return nil
	})
	bus.Subscribe(eventbus.TaskSucceeded, func(ctx context.Context, ev eventbus.AnalysisEvent) error {
		atomic.AddInt32(&succeeded, 1)
		return nil
	})
	bus.Subscribe(eventbus.TaskFailed, func(ctx context.Context, ev eventbus.AnalysisEvent) error {
		atomic.AddInt32(&failed, 1)
		if ev.TaskKey != "damage" || ev.Err == nil {
			return errors.New("unexpected failed event")
		}
		return nil
	})

	e := newTestExecutor(t, runner, bus)
	_, err := e.Run(context.Background(), testGraph())
	require.NoError(t, err)

	assert.Equal(t, int32(5), atomic.LoadInt32(&started))
	assert.Equal(t, int32(4), atomic.LoadInt32(&succeeded))
	assert.Equal(t, int32(1), atomic.LoadInt32(&failed))
}

func TestRunRejectsInvalidGraph(t *testing.T) {
	e := newTestExecutor(t, newFakeRunner(), nil)

	g := testGraph()
	g.Consumers[1].DependsOn = "needs"
	_, err := e.Run(context.Background(), g)
	assert.True(t, errors.Is(err, ErrInvalidGraph))

	g = testGraph()
	g.Consumers[2].Key = "needs"
	_, err = e.Run(context.Background(), g)
	assert.True(t, errors.Is(err, ErrInvalidGraph))

	g = testGraph()
	g.Producer.Key = ""
	_, err = e.Run(context.Background(), g)
	assert.True(t, errors.Is(err, ErrInvalidGraph))
}

func TestRunAfterStop(t *testing.T) {
	runner := newFakeRunner()
	e, err := NewExecutor(2, runner, nil)
	require.NoError(t, err)
	e.Stop(time.Second)

	result, err := e.Run(context.Background(), testGraph())
	require.NoError(t, err, "生产者在调用方 goroutine 中执行")
	for _, out := range result.Outputs[1:] {
		assert.True(t, errors.Is(out.Err, ErrExecutorStopped))
	}
}
