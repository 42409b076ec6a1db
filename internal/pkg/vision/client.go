package vision

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse 模型没有返回任何文本
	ErrEmptyResponse = errors.New("vision model returned empty response")
	ErrNotConfigured = errors.New("vision api key not configured")
)

// Client 视觉模型客户端
type Client interface {
	// Classify 发送一段提示词和一张图片，返回模型的文本回复
	Classify(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}
