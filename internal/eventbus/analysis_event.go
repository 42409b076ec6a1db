package eventbus

import (
	"context"
	"time"
)

type AnalysisEventType string

const (
	AnalysisStarted   AnalysisEventType = "AnalysisStarted"
	AnalysisSucceeded AnalysisEventType = "AnalysisSucceeded"
	AnalysisFailed    AnalysisEventType = "AnalysisFailed"

	TaskStarted   AnalysisEventType = "TaskStarted"
	TaskSucceeded AnalysisEventType = "TaskSucceeded"
	TaskFailed    AnalysisEventType = "TaskFailed"
)

type AnalysisEvent struct {
	Type     AnalysisEventType
	RunID    string
	CityID   int
	CityName string
	TaskKey  string // 仅任务事件
	Reports  int    // 仅 AnalysisSucceeded
	Duration time.Duration
	Err      error
	At       time.Time
}

type AnalysisEventHandler = Handler[AnalysisEvent]

// AnalysisEventBus 分析事件总线
type AnalysisEventBus struct {
	*Bus[AnalysisEventType, AnalysisEvent]
}

func NewAnalysisEventBus() *AnalysisEventBus {
	return &AnalysisEventBus{Bus: NewBus[AnalysisEventType, AnalysisEvent]()}
}

// Emit 按事件自身的 Type 分发，nil 总线上调用为空操作
func (b *AnalysisEventBus) Emit(ctx context.Context, event AnalysisEvent) error {
	if b == nil {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	return b.Publish(ctx, event.Type, event)
}
