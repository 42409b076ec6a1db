package adkagents

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
)

// NewLLMChatModel 创建 OpenAI 兼容的 ChatModel，并包装限流处理
func NewLLMChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	mc := &openai.ChatModelConfig{
		BaseURL: cfg.LLM.APIURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	}
	if cfg.LLM.MaxTokens > 0 {
		maxTokens := cfg.LLM.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	if cfg.LLM.Temperature > 0 {
		temperature := cfg.LLM.Temperature
		mc.Temperature = &temperature
	}

	chatModel, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		klog.Errorf("[LLMChatModel] 创建 ChatModel 失败: %v", err)
		return nil, err
	}

	klog.V(6).Infof("[LLMChatModel] ChatModel 创建成功: model=%s", cfg.LLM.Model)

	return NewProxyChatModel(chatModel, NewRateLimiter(), cfg.LLM.Model), nil
}
