package satellite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/metrics"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/vision"
)

const promptTemplate = `Analyze this satellite image and identify which city it represents.

You must return ONLY ONE of these exact city names:
%s

Look for any text, labels, or identifying features in the image that indicate which city this is.
If there's a red cross marker, pay attention to any city name near it.

Return ONLY the city name from the list above. Do not include any other text or explanation.`

// Resolver 卫星图 -> 城市
type Resolver struct {
	cities        *domain.CityRegistry
	client        vision.Client
	available     bool
	timeout       time.Duration
	defaultCityID int
}

// NewResolver 创建识别器
// client 为 nil 或视觉 Key 未配置时走离线识别
func NewResolver(cfg *config.Config, cities *domain.CityRegistry, client vision.Client) *Resolver {
	defaultID := cfg.Analysis.DefaultCityID
	if !cities.Exists(defaultID) {
		defaultID = cities.Default().ID
	}
	return &Resolver{
		cities:        cities,
		client:        client,
		available:     client != nil && cfg.Vision.Available(),
		timeout:       cfg.Vision.Timeout,
		defaultCityID: defaultID,
	}
}

// Prompt 发送给视觉模型的提示词
func (r *Resolver) Prompt() string {
	return fmt.Sprintf(promptTemplate, strings.Join(r.cities.Names(), ", "))
}

// Resolve 识别图片对应的城市，不返回错误
// 识别失败时 Matched 为 false，由调用方决定是否回退到默认城市
func (r *Resolver) Resolve(ctx context.Context, imagePath string) domain.ResolutionResult {
	if !r.available {
		return r.resolveMock(imagePath)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		klog.Errorf("[Satellite] 读取图片失败: path=%s, err=%v", imagePath, err)
		metrics.Resolutions.WithLabelValues(metrics.ResolutionError).Inc()
		return domain.Unmatched("")
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		klog.Warningf("[Satellite] 文件类型不是图片，仍尝试识别: path=%s, mime=%s", imagePath, mime.String())
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := r.client.Classify(callCtx, r.Prompt(), data, mime.String())
	if err != nil {
		klog.Errorf("[Satellite] 视觉模型调用失败: path=%s, elapsed=%v, err=%v", imagePath, time.Since(start), err)
		metrics.Resolutions.WithLabelValues(metrics.ResolutionError).Inc()
		return domain.Unmatched("")
	}

	city, ok := r.cities.MatchName(reply)
	if !ok {
		klog.Warningf("[Satellite] 模型回复未匹配任何城市: path=%s, reply=%q", imagePath, reply)
		metrics.Resolutions.WithLabelValues(metrics.ResolutionUnmatched).Inc()
		return domain.Unmatched(reply)
	}

	klog.V(6).Infof("[Satellite] 识别成功: path=%s, city=%s, elapsed=%v", imagePath, city.Name, time.Since(start))
	metrics.Resolutions.WithLabelValues(metrics.ResolutionMatched).Inc()
	return domain.MatchedCity(city, reply)
}

// resolveMock 根据文件名识别，不读取文件内容
func (r *Resolver) resolveMock(imagePath string) domain.ResolutionResult {
	metrics.Resolutions.WithLabelValues(metrics.ResolutionMock).Inc()

	base := filepath.Base(imagePath)
	if city, ok := r.cities.MatchToken(base); ok {
		klog.V(6).Infof("[Satellite] 离线识别命中: file=%s, city=%s", base, city.Name)
		result := domain.MatchedCity(city, "")
		result.Mock = true
		return result
	}

	city, _ := r.cities.Get(r.defaultCityID)
	klog.Warningf("[Satellite] 离线识别未命中，使用默认城市: file=%s, city=%s", base, city.Name)
	return domain.ResolutionResult{
		CityID:   city.ID,
		CityName: city.Name,
		Matched:  false,
		Mock:     true,
	}
}
