package adkagents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// RateLimiter 记录模型被限流到何时，所有并发 Agent 共享
type RateLimiter struct {
	mu           sync.Mutex
	blockedUntil time.Time
	defaultReset time.Duration
}

// NewRateLimiter 创建速率限制处理器
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{defaultReset: 20 * time.Second}
}

var rateLimitKeywords = []string{
	"rate limit",
	"quota exceeded",
	"too many requests",
	"rate-limited",
	"request rate exceeded",
}

// IsRateLimitError 判断错误是否为 Rate Limit 错误
func (r *RateLimiter) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "429") {
		return true
	}
	for _, keyword := range rateLimitKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

var durationPatterns = []struct {
	re   *regexp.Regexp
	unit time.Duration
}{
	{regexp.MustCompile(`(?i)(?:try again in|retry after) (\d+(?:\.\d+)?)\s*ms`), time.Millisecond},
	{regexp.MustCompile(`(?i)(?:try again in|retry after) (\d+(?:\.\d+)?)\s*s`), time.Second},
	{regexp.MustCompile(`(?i)(?:try again in|retry after) (\d+(?:\.\d+)?)\s*m`), time.Minute},
}

// ParseResetTime 从错误中解析重置时间，解析不到返回零值
func (r *RateLimiter) ParseResetTime(err error) time.Time {
	if err == nil {
		return time.Time{}
	}

	errMsg := err.Error()
	for _, p := range durationPatterns {
		matches := p.re.FindStringSubmatch(errMsg)
		if len(matches) < 2 {
			continue
		}
		var n float64
		if _, scanErr := fmt.Sscanf(matches[1], "%g", &n); scanErr == nil {
			return Now().Add(time.Duration(n * float64(p.unit)))
		}
	}
	return time.Time{}
}

// MarkLimited 记录限流，直到 resetTime 之前的调用都会等待
func (r *RateLimiter) MarkLimited(err error) time.Time {
	resetTime := r.ParseResetTime(err)
	if resetTime.IsZero() {
		resetTime = Now().Add(r.defaultReset)
	}

	r.mu.Lock()
	if resetTime.After(r.blockedUntil) {
		r.blockedUntil = resetTime
	}
	until := r.blockedUntil
	r.mu.Unlock()

	klog.Warningf("[RateLimiter] 模型被限流，暂停到 %s: %v", until.Format(time.RFC3339), err)
	return until
}

// BlockedUntil 当前限流截止时间
func (r *RateLimiter) BlockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockedUntil
}

// Wait 等待限流结束，ctx 取消时提前返回
func (r *RateLimiter) Wait(ctx context.Context) error {
	wait := r.BlockedUntil().Sub(Now())
	if wait <= 0 {
		return nil
	}

	klog.V(6).Infof("[RateLimiter] 等待限流结束: %v", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
