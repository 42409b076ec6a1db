package adkagents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_IsRateLimitError(t *testing.T) {
	r := NewRateLimiter()

	assert.True(t, r.IsRateLimitError(errors.New("error, status code: 429, message: Rate limit reached")))
	assert.True(t, r.IsRateLimitError(errors.New("Too Many Requests")))
	assert.False(t, r.IsRateLimitError(errors.New("connection refused")))
	assert.False(t, r.IsRateLimitError(nil))
}

func TestRateLimiter_ParseResetTime(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	Now = func() time.Time { return fixed }
	defer func() { Now = time.Now }()

	r := NewRateLimiter()

	assert.Equal(t, fixed.Add(20*time.Second), r.ParseResetTime(errors.New("Please try again in 20s.")))
	assert.Equal(t, fixed.Add(1500*time.Millisecond), r.ParseResetTime(errors.New("Please try again in 1.5s.")))
	assert.Equal(t, fixed.Add(300*time.Millisecond), r.ParseResetTime(errors.New("Please try again in 300ms.")))
	assert.Equal(t, fixed.Add(2*time.Minute), r.ParseResetTime(errors.New("Retry after 2m")))
	assert.True(t, r.ParseResetTime(errors.New("rate limit")).IsZero())
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	r := NewRateLimiter()
	r.MarkLimited(errors.New("429 try again in 10s"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Wait(ctx)
	assert.Error(t, err, "ctx 超时应中断等待")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRateLimiter_NoWaitWhenNotLimited(t *testing.T) {
	r := NewRateLimiter()
	assert.NoError(t, r.Wait(context.Background()))
}
