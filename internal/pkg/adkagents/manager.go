package adkagents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/adkagents/tools"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/metrics"
)

// Manager 按角色创建并运行 ADK Agent
// Agent 与城市绑定，因此每次任务都会重新创建，不做缓存
type Manager struct {
	cfg       *config.Config
	registry  *Registry
	chatModel model.ToolCallingChatModel
	store     tools.DocumentStore
}

// NewManager 创建 Manager
func NewManager(cfg *config.Config, registry *Registry, chatModel model.ToolCallingChatModel, store tools.DocumentStore) *Manager {
	return &Manager{
		cfg:       cfg,
		registry:  registry,
		chatModel: chatModel,
		store:     store,
	}
}

// NewManagerFromConfig 加载 Agent 定义并创建模型
func NewManagerFromConfig(ctx context.Context, cfg *config.Config, store tools.DocumentStore) (*Manager, error) {
	registry := NewRegistry()
	loader := NewLoader(NewParser(ListTools()), registry)
	if _, err := loader.Load(cfg.Agent.File); err != nil {
		return nil, fmt.Errorf("failed to load agent definitions: %w", err)
	}

	chatModel, err := NewLLMChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return NewManager(cfg, registry, chatModel, store), nil
}

// WatchDefinitions 监听 agent.file，修改后重新加载
// 新文件校验失败时保留当前定义
func (m *Manager) WatchDefinitions(interval time.Duration) (*FileWatcher, error) {
	if m.cfg.Agent.File == "" {
		return nil, fmt.Errorf("%w: agent.file is not set", ErrConfigNotFound)
	}
	loader := NewLoader(NewParser(ListTools()), m.registry)
	w := NewFileWatcher(m.cfg.Agent.File, interval, func(path string) {
		defs, err := loader.Load(path)
		if err != nil {
			klog.Errorf("[Manager] 重新加载 Agent 定义失败，保留当前定义: path=%s, err=%v", path, err)
			return
		}
		klog.Infof("[Manager] Agent 定义已重新加载: path=%s, count=%d", path, len(defs))
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// List 按执行顺序列出 Agent 定义
func (m *Manager) List() []*AgentDefinition {
	return m.registry.List()
}

// Definition 获取角色定义
func (m *Manager) Definition(role AgentRole) (*AgentDefinition, error) {
	return m.registry.Get(role)
}

// BuildAgent 根据角色定义创建绑定到城市的 ChatModelAgent
func (m *Manager) BuildAgent(ctx context.Context, def *AgentDefinition, task Task) (adk.Agent, error) {
	provider := &ToolProvider{Store: m.store, CityID: task.CityID, CityName: task.CityName}
	agentTools := make([]tool.BaseTool, 0, len(def.Tools))
	for _, toolName := range def.Tools {
		t, err := provider.GetTool(toolName)
		if err != nil {
			return nil, err
		}
		agentTools = append(agentTools, t)
	}

	maxIterations := def.MaxIterations
	if maxIterations <= 0 {
		maxIterations = m.cfg.Agent.MaxIterations
	}

	description := def.Description
	if description == "" {
		description = def.Name
	}

	agentCfg := &adk.ChatModelAgentConfig{
		Name:          def.Name,
		Description:   description,
		Instruction:   def.Instruction(task.CityName),
		Model:         m.chatModel,
		MaxIterations: maxIterations,
	}
	if len(agentTools) > 0 {
		agentCfg.ToolsConfig = adk.ToolsConfig{
			ToolsNodeConfig: compose.ToolsNodeConfig{
				Tools: agentTools,
			},
		}
	}

	agent, err := adk.NewChatModelAgent(ctx, agentCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChatModelAgent: %w", err)
	}
	return agent, nil
}

// RunTask 运行一个角色的任务，返回最终报告文本
func (m *Manager) RunTask(ctx context.Context, task Task) (string, error) {
	def, err := m.registry.Get(task.Role)
	if err != nil {
		return "", err
	}

	agent, err := m.BuildAgent(ctx, def, task)
	if err != nil {
		metrics.TaskRuns.WithLabelValues(string(task.Role), "error").Inc()
		return "", err
	}

	start := time.Now()
	klog.V(6).Infof("[Manager] 开始执行任务: role=%s, city=%s", task.Role, task.CityName)

	messages := []adk.Message{
		schema.UserMessage(def.TaskPrompt(task.CityName, task.Context)),
	}
	content, err := lastReport(ctx, agent, messages)
	if err != nil {
		// 超过迭代次数但已有输出时，使用已有输出
		if exceededIterations(err) && strings.TrimSpace(content) != "" {
			klog.Warningf("[Manager] 任务超过最大迭代次数，使用最后一次输出: role=%s, err=%v", task.Role, err)
		} else {
			klog.Errorf("[Manager] 任务执行失败: role=%s, city=%s, elapsed=%v, err=%v", task.Role, task.CityName, time.Since(start), err)
			metrics.TaskRuns.WithLabelValues(string(task.Role), "error").Inc()
			return "", err
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		metrics.TaskRuns.WithLabelValues(string(task.Role), "empty").Inc()
		return "", fmt.Errorf("%w: role=%s", ErrEmptyOutput, task.Role)
	}

	klog.V(6).Infof("[Manager] 任务完成: role=%s, city=%s, elapsed=%v, len=%d", task.Role, task.CityName, time.Since(start), len(content))
	metrics.TaskRuns.WithLabelValues(string(task.Role), "ok").Inc()
	return content, nil
}

// lastReport 运行 Agent 直到结束，返回最后一条非空消息作为报告
// 出错时仍返回已收到的最后一条消息
func lastReport(ctx context.Context, agent adk.Agent, messages []adk.Message) (string, error) {
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: agent})
	iter := runner.Run(ctx, messages)

	var report string
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		event, ok := iter.Next()
		if !ok {
			return report, nil
		}
		if event.Err != nil {
			return report, event.Err
		}
		if msg := eventMessage(event); msg != nil && msg.Content != "" {
			report = msg.Content
		}
		if event.Action != nil && event.Action.Exit {
			return report, nil
		}
	}
}

func eventMessage(event *adk.AgentEvent) adk.Message {
	if event.Output == nil || event.Output.MessageOutput == nil {
		return nil
	}
	return event.Output.MessageOutput.Message
}

// exceededIterations 错误经过 compose 包装后可能只剩文本
func exceededIterations(err error) bool {
	return errors.Is(err, adk.ErrExceedMaxIterations) || strings.Contains(err.Error(), adk.ErrExceedMaxIterations.Error())
}

// IsConfigError 配置类错误，与模型调用失败区分
func IsConfigError(err error) bool {
	return errors.Is(err, ErrAgentNotFound) || errors.Is(err, ErrToolNotFound) || errors.Is(err, ErrInvalidConfig)
}
