package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/metrics"
)

const FoodToolName = "estimate_food_needs"

// FoodNeedsTool 食物需求估算工具
type FoodNeedsTool struct{}

func NewFoodNeedsTool() *FoodNeedsTool {
	return &FoodNeedsTool{}
}

func (t *FoodNeedsTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: FoodToolName,
		Desc: "Given the number of people in a region, returns how many apples, bananas and oranges are needed to feed them.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"number": {
				Type:     schema.Integer,
				Desc:     "Number of people that need food",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun 参数错误以字符串返回给模型，不中断节点执行
func (t *FoodNeedsTool) InvokableRun(ctx context.Context, arguments string, opts ...tool.Option) (string, error) {
	n, err := parseNumberArg(arguments)
	if err != nil {
		klog.Warningf("[FoodNeedsTool] 参数校验失败: args=%s, err=%v", arguments, err)
		metrics.ToolInvocations.WithLabelValues(FoodToolName, "invalid").Inc()
		return fmt.Sprintf("Error: %v", err), nil
	}

	result := EstimateFoodNeeds(n).String()
	klog.V(6).Infof("[FoodNeedsTool] 估算完成: people=%d, result=%s", n, result)
	metrics.ToolInvocations.WithLabelValues(FoodToolName, "ok").Inc()
	return result, nil
}
