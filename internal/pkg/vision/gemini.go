package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
)

// GeminiClient 基于 Gemini 的视觉客户端
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient 创建客户端
// Key 不可用时返回错误，调用方应改用离线识别
func NewGeminiClient(ctx context.Context, cfg config.VisionConfig) (*GeminiClient, error) {
	if !cfg.Available() {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	klog.V(6).Infof("[Vision] Gemini 客户端已创建: model=%s", cfg.Model)
	return &GeminiClient{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Classify 提示词与图片放在同一条用户消息中
func (g *GeminiClient) Classify(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("vision request timeout: %w", err)
		}
		return "", fmt.Errorf("vision request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	klog.V(6).Infof("[Vision] 模型回复: model=%s, len=%d", g.model, len(text))
	return text, nil
}
