package adkagents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"k8s.io/klog/v2"
)

type startTimeKey struct{}

// Callbacks Eino 回调处理器
// 记录模型调用与工具调用的输入、输出、耗时和错误
// 开始时间放在 ctx 中，多个 Agent 并发执行时互不影响
type Callbacks struct{}

func NewCallbacks() *Callbacks {
	return &Callbacks{}
}

// Handler 获取 Eino 的 Handler 接口实现
func (c *Callbacks) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(c.onStart).
		OnEndFn(c.onEnd).
		OnErrorFn(c.onError).
		Build()
}

var registerOnce sync.Once

// RegisterGlobal 注册为全局回调，重复调用只生效一次
func (c *Callbacks) RegisterGlobal() {
	registerOnce.Do(func() {
		callbacks.AppendGlobalHandlers(c.Handler())
		klog.V(6).Infof("[EinoCallback] 全局回调已注册")
	})
}

func (c *Callbacks) onStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	klog.V(6).InfoS("[EinoCallback] 节点开始执行",
		"component", info.Component,
		"type", info.Type,
		"name", info.Name,
	)

	switch info.Component {
	case "ChatModel", "Model":
		if in := model.ConvCallbackInput(input); in != nil {
			klog.V(6).InfoS("[EinoCallback] Model 输入",
				"name", info.Name,
				"message_count", len(in.Messages),
				"tool_count", len(in.Tools),
			)
		}
	case "Tool":
		if in := tool.ConvCallbackInput(input); in != nil {
			klog.V(6).InfoS("[EinoCallback] Tool 输入参数",
				"name", info.Name,
				"arguments", in.ArgumentsInJSON,
			)
		}
	}

	return context.WithValue(ctx, startTimeKey{}, time.Now())
}

func (c *Callbacks) onEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	duration := elapsed(ctx)

	switch info.Component {
	case "ChatModel", "Model":
		out := model.ConvCallbackOutput(output)
		if out == nil {
			break
		}
		if out.Message != nil {
			klog.V(6).InfoS("[EinoCallback] Model 输出",
				"name", info.Name,
				"content_length", len(out.Message.Content),
				"tool_call_count", len(out.Message.ToolCalls),
				"duration_ms", duration.Milliseconds(),
			)
			klog.V(8).InfoS("[EinoCallback] Model 输出 Content",
				"name", info.Name,
				"content", out.Message.Content,
			)
		}
		if out.TokenUsage != nil {
			klog.V(6).InfoS("[EinoCallback] Model Token 使用情况",
				"name", info.Name,
				"prompt_tokens", out.TokenUsage.PromptTokens,
				"completion_tokens", out.TokenUsage.CompletionTokens,
				"total_tokens", out.TokenUsage.TotalTokens,
			)
		}
	case "Tool":
		if out := tool.ConvCallbackOutput(output); out != nil {
			klog.V(6).InfoS("[EinoCallback] Tool 输出响应",
				"name", info.Name,
				"response_length", len(out.Response),
				"duration_ms", duration.Milliseconds(),
			)
			klog.V(8).InfoS("[EinoCallback] Tool 输出响应详情",
				"name", info.Name,
				"response", out.Response,
			)
		}
	default:
		klog.V(8).InfoS("[EinoCallback] 节点执行完成",
			"component", info.Component,
			"name", info.Name,
			"output_type", fmt.Sprintf("%T", output),
			"duration_ms", duration.Milliseconds(),
		)
	}
	return ctx
}

func (c *Callbacks) onError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	klog.ErrorS(err, "[EinoCallback] 节点执行出错",
		"component", info.Component,
		"type", info.Type,
		"name", info.Name,
		"duration_ms", elapsed(ctx).Milliseconds(),
	)
	return ctx
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
