package disaster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/eventbus"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/adkagents"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/metrics"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/orchestrator"
)

// ErrExecutionFailed 分析流程执行失败
var ErrExecutionFailed = errors.New("disaster analysis failed")

// 任务 Key
const (
	TaskCollect   = "data_collection"
	TaskNeeds     = "needs_analysis"
	TaskDispatch  = "aid_dispatch"
	TaskResources = "resource_allocation"
	TaskDamage    = "damage_analysis"
)

// consumerOrder 消费者提交顺序及对应的报告标签
var consumerOrder = []struct {
	key   string
	role  adkagents.AgentRole
	label string
}{
	{key: TaskNeeds, role: adkagents.RoleNeedsAnalyst, label: LabelNeeds},
	{key: TaskDispatch, role: adkagents.RoleAidDispatcher, label: LabelDispatch},
	{key: TaskResources, role: adkagents.RoleResourceAllocator, label: LabelResources},
	{key: TaskDamage, role: adkagents.RoleDamageAnalyser, label: LabelDamage},
}

// GraphRunner 任务图执行器
type GraphRunner interface {
	Run(ctx context.Context, g orchestrator.Graph) (*orchestrator.GraphResult, error)
}

// DefinitionSource 提供各角色的任务描述
type DefinitionSource interface {
	Definition(role adkagents.AgentRole) (*adkagents.AgentDefinition, error)
}

type Service struct {
	cfg         config.AnalysisConfig
	cities      *domain.CityRegistry
	graph       GraphRunner
	definitions DefinitionSource
	bus         *eventbus.AnalysisEventBus
}

func NewService(cfg config.AnalysisConfig, cities *domain.CityRegistry, graph GraphRunner, definitions DefinitionSource, bus *eventbus.AnalysisEventBus) *Service {
	return &Service{
		cfg:         cfg,
		cities:      cities,
		graph:       graph,
		definitions: definitions,
		bus:         bus,
	}
}

// RunAnalysis 对城市执行完整的五 Agent 分析，返回四份带标签的报告
// 城市编号无效时在任何外部调用之前返回 domain.ErrInvalidCity
func (s *Service) RunAnalysis(ctx context.Context, cityID int) (*Report, error) {
	city, err := s.cities.Lookup(cityID)
	if err != nil {
		return nil, err
	}

	g, err := s.buildGraph(city)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	s.emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisStarted, RunID: g.RunID, CityID: city.ID, CityName: city.Name})
	klog.V(6).Infof("[Disaster] 开始分析: run=%s, city=%s", g.RunID, city.Name)

	report, err := s.execute(ctx, g)
	duration := time.Since(start)
	if err != nil {
		klog.Errorf("[Disaster] 分析失败: run=%s, city=%s, elapsed=%v, err=%v", g.RunID, city.Name, duration, err)
		s.emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisFailed, RunID: g.RunID, CityID: city.ID, CityName: city.Name, Duration: duration, Err: err})
		metrics.AnalysisRuns.WithLabelValues("failed").Inc()
		metrics.AnalysisDuration.WithLabelValues("failed").Observe(duration.Seconds())
		return nil, err
	}

	klog.V(6).Infof("[Disaster] 分析完成: run=%s, city=%s, reports=%d, elapsed=%v", g.RunID, city.Name, report.Len(), duration)
	s.emit(ctx, eventbus.AnalysisEvent{Type: eventbus.AnalysisSucceeded, RunID: g.RunID, CityID: city.ID, CityName: city.Name, Duration: duration, Reports: report.Len()})
	metrics.AnalysisRuns.WithLabelValues("succeeded").Inc()
	metrics.AnalysisDuration.WithLabelValues("succeeded").Observe(duration.Seconds())
	return report, nil
}

func (s *Service) execute(ctx context.Context, g orchestrator.Graph) (*Report, error) {
	result, err := s.graph.Run(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}
	// 超时或调用方取消时各任务结果不可信，整体失败
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, ctxErr)
	}
	if len(result.Outputs) != 1+len(consumerOrder) {
		return nil, fmt.Errorf("%w: expected %d task outputs, got %d", ErrExecutionFailed, 1+len(consumerOrder), len(result.Outputs))
	}

	if s.cfg.FailFast {
		if failed, ok := rootFailure(result); ok {
			return nil, fmt.Errorf("%w: task %s: %w", ErrExecutionFailed, failed.Key, failed.Err)
		}
	}

	// 第一个输出是数据收集结果，不进入报告
	report := &Report{}
	for i, c := range consumerOrder {
		out := result.Outputs[i+1]
		text := strings.TrimSpace(out.Output)
		if out.Err == nil && text != "" {
			report.add(c.label, text)
			continue
		}

		reason := "empty output"
		if out.Err != nil {
			reason = out.Err.Error()
		}
		klog.Warningf("[Disaster] 报告缺失: run=%s, label=%s, reason=%s", g.RunID, c.label, reason)
		if s.cfg.MissingReports == config.MissingReportsPlaceholder {
			report.add(c.label, MissingReportPrefix+reason)
		}
	}
	return report, nil
}

// rootFailure 跳过因其他任务失败而被取消的任务，返回真正的失败原因
func rootFailure(result *orchestrator.GraphResult) (orchestrator.TaskOutput, bool) {
	for _, o := range result.Outputs {
		if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			return o, true
		}
	}
	return result.Failed()
}

func (s *Service) buildGraph(city domain.City) (orchestrator.Graph, error) {
	producer, err := s.taskSpec(TaskCollect, adkagents.RoleDataCollector, "", city)
	if err != nil {
		return orchestrator.Graph{}, err
	}

	consumers := make([]orchestrator.TaskSpec, 0, len(consumerOrder))
	for _, c := range consumerOrder {
		spec, err := s.taskSpec(c.key, c.role, TaskCollect, city)
		if err != nil {
			return orchestrator.Graph{}, err
		}
		consumers = append(consumers, spec)
	}

	return orchestrator.Graph{
		RunID:           uuid.NewString(),
		CityID:          city.ID,
		CityName:        city.Name,
		Producer:        producer,
		Consumers:       consumers,
		CancelOnFailure: s.cfg.FailFast,
	}, nil
}

func (s *Service) taskSpec(key string, role adkagents.AgentRole, dependsOn string, city domain.City) (orchestrator.TaskSpec, error) {
	spec := orchestrator.TaskSpec{Key: key, Role: string(role), DependsOn: dependsOn}
	if s.definitions == nil {
		return spec, nil
	}
	def, err := s.definitions.Definition(role)
	if err != nil {
		return spec, err
	}
	spec.Description = strings.ReplaceAll(def.TaskDescription, adkagents.CityPlaceholder, city.Name)
	spec.ExpectedOutput = def.ExpectedOutput
	return spec, nil
}

func (s *Service) emit(ctx context.Context, event eventbus.AnalysisEvent) {
	if err := s.bus.Emit(context.WithoutCancel(ctx), event); err != nil {
		klog.Warningf("[Disaster] 事件处理失败: type=%s, run=%s, err=%v", event.Type, event.RunID, err)
	}
}
