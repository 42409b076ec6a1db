package adkagents

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"
)

// ProxyChatModel 包装真实模型：调用前等待限流结束，遇到限流错误等待后重试一次
type ProxyChatModel struct {
	inner       model.ToolCallingChatModel
	rateLimiter *RateLimiter
	modelName   string
}

// NewProxyChatModel 创建代理模型
func NewProxyChatModel(inner model.ToolCallingChatModel, limiter *RateLimiter, modelName string) *ProxyChatModel {
	return &ProxyChatModel{
		inner:       inner,
		rateLimiter: limiter,
		modelName:   modelName,
	}
}

// Generate 实现 model.BaseChatModel 接口
func (p *ProxyChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return execute(ctx, p, func() (*schema.Message, error) {
		return p.inner.Generate(ctx, input, opts...)
	})
}

// Stream 实现 model.BaseChatModel 接口
func (p *ProxyChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return execute(ctx, p, func() (*schema.StreamReader[*schema.Message], error) {
		return p.inner.Stream(ctx, input, opts...)
	})
}

// WithTools 适配 model.ToolCallingChatModel 接口，共享同一个限流器
func (p *ProxyChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	inner, err := p.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return NewProxyChatModel(inner, p.rateLimiter, p.modelName), nil
}

func execute[T any](ctx context.Context, p *ProxyChatModel, call func() (T, error)) (T, error) {
	var zero T
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return zero, err
	}

	result, err := call()
	if err == nil || !p.rateLimiter.IsRateLimitError(err) {
		return result, err
	}

	p.rateLimiter.MarkLimited(err)
	if waitErr := p.rateLimiter.Wait(ctx); waitErr != nil {
		return zero, err
	}

	klog.V(6).Infof("[ProxyChatModel] 限流结束，重试: model=%s", p.modelName)
	return call()
}
