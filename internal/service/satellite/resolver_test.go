package satellite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
)

type fakeVision struct {
	reply    string
	err      error
	calls    int
	prompt   string
	mimeType string
	deadline bool
}

func (f *fakeVision) Classify(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	f.calls++
	f.prompt = prompt
	f.mimeType = mimeType
	_, f.deadline = ctx.Deadline()
	return f.reply, f.err
}

// 最小的 PNG 文件头
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, pngHeader, 0644))
	return path
}

func testConfig(apiKey string) *config.Config {
	cfg := config.Default()
	cfg.Vision.APIKey = apiKey
	cfg.Vision.Timeout = time.Second
	return cfg
}

func TestResolveMockByFileName(t *testing.T) {
	fake := &fakeVision{reply: "Shoreline City"}
	r := NewResolver(testConfig(""), domain.Cities, fake)

	res := r.Resolve(context.Background(), "/uploads/abc_Baytown.png")
	assert.Equal(t, 3, res.CityID)
	assert.True(t, res.Matched)
	assert.True(t, res.Mock)
	assert.Equal(t, 0, fake.calls, "未配置 Key 时不应调用视觉模型")
}

func TestResolveMockFallsBackToDefault(t *testing.T) {
	r := NewResolver(testConfig("your_google_api_key_here"), domain.Cities, nil)

	res := r.Resolve(context.Background(), "/uploads/abc_random.png")
	assert.Equal(t, 1, res.CityID)
	assert.Equal(t, "Seabrook City", res.CityName)
	assert.False(t, res.Matched, "默认城市不算命中")
	assert.True(t, res.Mock)
}

func TestResolveMockUsesConfiguredDefault(t *testing.T) {
	cfg := testConfig("")
	cfg.Analysis.DefaultCityID = 4
	r := NewResolver(cfg, domain.Cities, nil)

	res := r.Resolve(context.Background(), "unknown.png")
	assert.Equal(t, 4, res.CityID)
	assert.False(t, res.Matched)
}

func TestResolveWithVisionModel(t *testing.T) {
	fake := &fakeVision{reply: "  Ridgeview City\n"}
	r := NewResolver(testConfig("real-key"), domain.Cities, fake)

	res := r.Resolve(context.Background(), writeImage(t, "Baytown.png"))
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 4, res.CityID, "应以模型回复为准而不是文件名")
	assert.True(t, res.Matched)
	assert.False(t, res.Mock)
	assert.Equal(t, "image/png", fake.mimeType)
	assert.True(t, fake.deadline, "视觉调用应有超时")
	for _, name := range domain.Cities.Names() {
		assert.True(t, strings.Contains(fake.prompt, name), "提示词应列出 %s", name)
	}
}

func TestResolveUnmatchedReply(t *testing.T) {
	fake := &fakeVision{reply: "Springfield"}
	r := NewResolver(testConfig("real-key"), domain.Cities, fake)

	res := r.Resolve(context.Background(), writeImage(t, "city.png"))
	assert.False(t, res.Matched)
	assert.Equal(t, 0, res.CityID)
	assert.Equal(t, "Springfield", res.RawResponse)
}

func TestResolveVisionError(t *testing.T) {
	fake := &fakeVision{err: errors.New("quota exceeded")}
	r := NewResolver(testConfig("real-key"), domain.Cities, fake)

	res := r.Resolve(context.Background(), writeImage(t, "city.png"))
	assert.False(t, res.Matched)
	assert.Equal(t, 0, res.CityID)
}

func TestResolveMissingFile(t *testing.T) {
	fake := &fakeVision{reply: "Baytown City"}
	r := NewResolver(testConfig("real-key"), domain.Cities, fake)

	res := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.False(t, res.Matched)
	assert.Equal(t, 0, fake.calls)
}
