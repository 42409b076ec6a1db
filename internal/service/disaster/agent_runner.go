package disaster

import (
	"context"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/adkagents"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/orchestrator"
)

// taskManager adkagents.Manager 的执行能力
type taskManager interface {
	RunTask(ctx context.Context, task adkagents.Task) (string, error)
}

// AgentRunner 把任务图中的任务交给对应角色的 Agent 执行
type AgentRunner struct {
	manager taskManager
}

func NewAgentRunner(manager taskManager) *AgentRunner {
	return &AgentRunner{manager: manager}
}

func (r *AgentRunner) RunTask(ctx context.Context, run orchestrator.TaskRun) (string, error) {
	return r.manager.RunTask(ctx, adkagents.Task{
		Role:     adkagents.AgentRole(run.Spec.Role),
		CityID:   run.CityID,
		CityName: run.CityName,
		Context:  run.Context,
	})
}
