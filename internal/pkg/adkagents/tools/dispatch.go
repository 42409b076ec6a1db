package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/metrics"
)

const DispatchToolName = "estimate_dispatch"

// DispatchTool 救援力量估算工具
type DispatchTool struct{}

func NewDispatchTool() *DispatchTool {
	return &DispatchTool{}
}

func (t *DispatchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: DispatchToolName,
		Desc: "Given the number of affected people, returns how many helicopters, police and special forces should be dispatched.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"number": {
				Type:     schema.Integer,
				Desc:     "Number of affected people",
				Required: true,
			},
		}),
	}, nil
}

func (t *DispatchTool) InvokableRun(ctx context.Context, arguments string, opts ...tool.Option) (string, error) {
	n, err := parseNumberArg(arguments)
	if err != nil {
		klog.Warningf("[DispatchTool] 参数校验失败: args=%s, err=%v", arguments, err)
		metrics.ToolInvocations.WithLabelValues(DispatchToolName, "invalid").Inc()
		return fmt.Sprintf("Error: %v", err), nil
	}

	result := EstimateDispatch(n).String()
	klog.V(6).Infof("[DispatchTool] 估算完成: affected=%d, result=%s", n, result)
	metrics.ToolInvocations.WithLabelValues(DispatchToolName, "ok").Inc()
	return result, nil
}
