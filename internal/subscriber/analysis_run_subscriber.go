package subscriber

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/eventbus"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/repository"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/statemachine"
)

// errorMsgLimit 与 AnalysisRun.ErrorMsg 列宽一致
const errorMsgLimit = 1000

// AnalysisRunSubscriber 把分析事件记录为 AnalysisRun
type AnalysisRunSubscriber struct {
	runRepo      repository.AnalysisRunRepository
	stateMachine *statemachine.RunStateMachine
}

func NewAnalysisRunSubscriber(runRepo repository.AnalysisRunRepository) *AnalysisRunSubscriber {
	return &AnalysisRunSubscriber{
		runRepo:      runRepo,
		stateMachine: statemachine.NewRunStateMachine(),
	}
}

func (s *AnalysisRunSubscriber) Register(bus *eventbus.AnalysisEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.AnalysisStarted, s.handleStarted)
	bus.Subscribe(eventbus.AnalysisSucceeded, s.handleFinished)
	bus.Subscribe(eventbus.AnalysisFailed, s.handleFinished)
	bus.Subscribe(eventbus.TaskFailed, s.handleTaskFailed)
}

func (s *AnalysisRunSubscriber) handleStarted(ctx context.Context, event eventbus.AnalysisEvent) error {
	if event.RunID == "" {
		return fmt.Errorf("run id is empty")
	}
	run := &model.AnalysisRun{
		RunID:     event.RunID,
		CityID:    event.CityID,
		CityName:  event.CityName,
		Status:    model.AnalysisStatusRunning,
		StartedAt: event.At,
	}
	if err := s.runRepo.Create(run); err != nil {
		klog.Errorf("分析事件处理失败: type=%s, run=%s, error=%v", event.Type, event.RunID, err)
		return err
	}
	klog.V(6).Infof("分析记录已创建: run=%s, city=%s", event.RunID, event.CityName)
	return nil
}

func (s *AnalysisRunSubscriber) handleFinished(ctx context.Context, event eventbus.AnalysisEvent) error {
	run, err := s.runRepo.GetByRunID(event.RunID)
	if err != nil {
		klog.Errorf("分析事件处理失败: type=%s, run=%s, error=%v", event.Type, event.RunID, err)
		return err
	}

	to := statemachine.RunStatusFailed
	if event.Type == eventbus.AnalysisSucceeded {
		to = statemachine.RunStatusSucceeded
	}
	if err := s.stateMachine.Transition(statemachine.RunStatus(run.Status), to, run.RunID); err != nil {
		klog.Warningf("分析事件处理失败: type=%s, run=%s, error=%v", event.Type, event.RunID, err)
		return err
	}

	completedAt := event.At
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	run.CompletedAt = &completedAt
	run.Status = string(to)
	run.Reports = event.Reports
	if event.Err != nil {
		run.ErrorMsg = truncate(event.Err.Error(), errorMsgLimit)
	}

	if err := s.runRepo.Save(run); err != nil {
		klog.Errorf("分析事件处理失败: type=%s, run=%s, error=%v", event.Type, event.RunID, err)
		return err
	}
	klog.V(6).Infof("分析记录已更新: run=%s, status=%s, reports=%d", run.RunID, run.Status, run.Reports)
	return nil
}

// handleTaskFailed 单个任务失败只记录日志，整体状态由分析事件决定
func (s *AnalysisRunSubscriber) handleTaskFailed(ctx context.Context, event eventbus.AnalysisEvent) error {
	klog.Warningf("分析任务失败: run=%s, task=%s, city=%s, error=%v", event.RunID, event.TaskKey, event.CityName, event.Err)
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
