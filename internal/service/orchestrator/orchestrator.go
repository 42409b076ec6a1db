package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/eventbus"
)

// -----------------------------
// 任务定义
// -----------------------------
type TaskSpec struct {
	Key            string
	Role           string
	Description    string
	ExpectedOutput string
	DependsOn      string // 依赖的任务 Key，生产者为空
}

// TaskRun 交给 TaskRunner 的一次执行
type TaskRun struct {
	Spec     TaskSpec
	RunID    string
	CityID   int
	CityName string
	Context  string // 上游任务输出
}

// TaskRunner 执行单个任务
type TaskRunner interface {
	RunTask(ctx context.Context, run TaskRun) (string, error)
}

// Graph 一个生产者加若干依赖它的消费者
type Graph struct {
	RunID     string
	CityID    int
	CityName  string
	Producer  TaskSpec
	Consumers []TaskSpec
	// CancelOnFailure 任一消费者失败时取消其余消费者
	CancelOnFailure bool
}

type TaskOutput struct {
	Key      string
	Output   string
	Err      error
	Duration time.Duration
}

// GraphResult Outputs[0] 为生产者，其后按提交顺序排列消费者
type GraphResult struct {
	Outputs []TaskOutput
}

// Failed 返回第一个失败的任务
func (r *GraphResult) Failed() (TaskOutput, bool) {
	for _, o := range r.Outputs {
		if o.Err != nil {
			return o, true
		}
	}
	return TaskOutput{}, false
}

// -----------------------------
// 错误定义
// -----------------------------
var (
	ErrExecutorStopped = errors.New("executor is stopped")
	ErrInvalidGraph    = errors.New("invalid task graph")
	ErrProducerFailed  = errors.New("producer task failed")
	ErrTaskPanic       = errors.New("task panicked")
)

// -----------------------------
// Executor
// -----------------------------
type Executor struct {
	pool     *ants.Pool
	runner   TaskRunner
	bus      *eventbus.AnalysisEventBus
	stopOnce sync.Once
}

// NewExecutor 消费者任务在进程级共享的协程池中执行，maxWorkers 限制全局并发
func NewExecutor(maxWorkers int, runner TaskRunner, bus *eventbus.AnalysisEventBus) (*Executor, error) {
	pool, err := ants.NewPool(maxWorkers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(1000),
		ants.WithExpiryDuration(5*time.Minute),
	)
	if err != nil {
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}

	return &Executor{
		pool:   pool,
		runner: runner,
		bus:    bus,
	}, nil
}

// Stop 等待正在执行的任务结束后释放协程池
func (e *Executor) Stop(timeout time.Duration) {
	e.stopOnce.Do(func() {
		klog.V(6).Infof("Executor stopping: running=%d", e.pool.Running())
		if err := e.pool.ReleaseTimeout(timeout); err != nil {
			klog.Warningf("Timeout after %v: some running tasks may be forced to stop", timeout)
		}
	})
}

// Run 先执行生产者，成功后并发执行全部消费者并等待全部结束
// 生产者失败时不执行任何消费者，返回的 error 包装 ErrProducerFailed
// 消费者失败记录在各自的 TaskOutput 中，Run 本身不返回错误
func (e *Executor) Run(ctx context.Context, g Graph) (*GraphResult, error) {
	if err := validate(g); err != nil {
		return nil, err
	}

	result := &GraphResult{Outputs: make([]TaskOutput, 1+len(g.Consumers))}

	produced := e.execute(ctx, g, g.Producer, "")
	result.Outputs[0] = produced
	if produced.Err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrProducerFailed, g.Producer.Key, produced.Err)
	}

	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, spec := range g.Consumers {
		slot := i + 1
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			out := e.execute(consumerCtx, g, spec, produced.Output)
			result.Outputs[slot] = out
			if out.Err != nil && g.CancelOnFailure {
				cancel()
			}
		})
		if err != nil {
			wg.Done()
			klog.Errorf("提交任务到协程池失败: run=%s, task=%s, err=%v", g.RunID, spec.Key, err)
			if errors.Is(err, ants.ErrPoolClosed) {
				err = ErrExecutorStopped
			}
			result.Outputs[slot] = TaskOutput{Key: spec.Key, Err: err}
		}
	}
	wg.Wait()

	return result, nil
}

// execute 执行单个任务，panic 转为错误
func (e *Executor) execute(ctx context.Context, g Graph, spec TaskSpec, upstream string) (out TaskOutput) {
	out.Key = spec.Key
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("Task panic recovered: run=%s, task=%s, err=%v", g.RunID, spec.Key, r)
			out.Err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
		out.Duration = time.Since(start)
		e.emit(ctx, g, spec, out)
	}()

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	e.emitStarted(ctx, g, spec)
	output, err := e.runner.RunTask(ctx, TaskRun{
		Spec:     spec,
		RunID:    g.RunID,
		CityID:   g.CityID,
		CityName: g.CityName,
		Context:  upstream,
	})
	out.Output = output
	out.Err = err
	return out
}

func (e *Executor) emitStarted(ctx context.Context, g Graph, spec TaskSpec) {
	klog.V(6).Infof("Task started: run=%s, task=%s", g.RunID, spec.Key)
	if err := e.bus.Emit(ctx, eventbus.AnalysisEvent{
		Type:     eventbus.TaskStarted,
		RunID:    g.RunID,
		CityID:   g.CityID,
		CityName: g.CityName,
		TaskKey:  spec.Key,
	}); err != nil {
		klog.Warningf("任务事件处理失败: type=%s, task=%s, err=%v", eventbus.TaskStarted, spec.Key, err)
	}
}

func (e *Executor) emit(ctx context.Context, g Graph, spec TaskSpec, out TaskOutput) {
	eventType := eventbus.TaskSucceeded
	if out.Err != nil {
		eventType = eventbus.TaskFailed
		klog.Warningf("Task failed: run=%s, task=%s, duration=%v, err=%v", g.RunID, spec.Key, out.Duration, out.Err)
	} else {
		klog.V(6).Infof("Task completed: run=%s, task=%s, duration=%v", g.RunID, spec.Key, out.Duration)
	}

	// ctx 可能已取消，事件处理不受影响
	if err := e.bus.Emit(context.WithoutCancel(ctx), eventbus.AnalysisEvent{
		Type:     eventType,
		RunID:    g.RunID,
		CityID:   g.CityID,
		CityName: g.CityName,
		TaskKey:  spec.Key,
		Duration: out.Duration,
		Err:      out.Err,
	}); err != nil {
		klog.Warningf("任务事件处理失败: type=%s, task=%s, err=%v", eventType, spec.Key, err)
	}
}

func validate(g Graph) error {
	if g.Producer.Key == "" {
		return fmt.Errorf("%w: producer key is empty", ErrInvalidGraph)
	}
	if g.Producer.DependsOn != "" {
		return fmt.Errorf("%w: producer %s must not depend on another task", ErrInvalidGraph, g.Producer.Key)
	}

	keys := map[string]bool{g.Producer.Key: true}
	for _, c := range g.Consumers {
		if c.Key == "" {
			return fmt.Errorf("%w: consumer key is empty", ErrInvalidGraph)
		}
		if keys[c.Key] {
			return fmt.Errorf("%w: duplicate task key %s", ErrInvalidGraph, c.Key)
		}
		keys[c.Key] = true
		if c.DependsOn != g.Producer.Key {
			return fmt.Errorf("%w: consumer %s depends on %q, expected %s", ErrInvalidGraph, c.Key, c.DependsOn, g.Producer.Key)
		}
	}
	return nil
}
