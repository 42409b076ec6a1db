package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
)

// RunStatus 分析记录的状态
type RunStatus string

const (
	RunStatusRunning   RunStatus = model.AnalysisStatusRunning
	RunStatusSucceeded RunStatus = model.AnalysisStatusSucceeded
	RunStatusFailed    RunStatus = model.AnalysisStatusFailed
)

type RunTransition struct {
	From RunStatus
	To   RunStatus
}

// RunStateMachine 分析记录状态机
// running -> succeeded/failed，终止态不能再迁移
type RunStateMachine struct {
	allowedTransitions map[RunTransition]bool
}

func NewRunStateMachine() *RunStateMachine {
	sm := &RunStateMachine{
		allowedTransitions: make(map[RunTransition]bool),
	}

	transitions := []RunTransition{
		{RunStatusRunning, RunStatusSucceeded},
		{RunStatusRunning, RunStatusFailed}, // 执行失败、超时或重启时清理
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	return sm
}

func (sm *RunStateMachine) CanTransition(from, to RunStatus) bool {
	if from == to {
		return false
	}
	return sm.allowedTransitions[RunTransition{From: from, To: to}]
}

func (sm *RunStateMachine) ValidateTransition(from, to RunStatus) error {
	if !sm.CanTransition(from, to) {
		return &InvalidStateTransitionError{
			From: string(from),
			To:   string(to),
		}
	}
	return nil
}

// Transition 校验迁移并记录日志
func (sm *RunStateMachine) Transition(from, to RunStatus, runID string) error {
	if err := sm.ValidateTransition(from, to); err != nil {
		klog.V(6).Infof("分析状态迁移被拒绝: run=%s, %s -> %s, error=%v", runID, from, to, err)
		return err
	}
	klog.V(6).Infof("分析状态迁移成功: run=%s, %s -> %s", runID, from, to)
	return nil
}

type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid analysis run state transition: %s -> %s", e.From, e.To)
}

func IsTerminal(status RunStatus) bool {
	return status == RunStatusSucceeded || status == RunStatusFailed
}
