package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/repository"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/disaster"
)

// ErrTestImageNotFound 测试图片不存在
var ErrTestImageNotFound = errors.New("default test image not found")

// CityResolver 卫星图 -> 城市
type CityResolver interface {
	Resolve(ctx context.Context, imagePath string) domain.ResolutionResult
}

// DisasterAnalyzer 对城市执行灾情分析
type DisasterAnalyzer interface {
	RunAnalysis(ctx context.Context, cityID int) (*disaster.Report, error)
}

// ImageAnalysis 图片识别结果及最终采用的城市
type ImageAnalysis struct {
	Resolution domain.ResolutionResult
	City       domain.City
	// Fallback 未识别出城市，使用了默认城市
	Fallback bool
}

type SatelliteAnalysis struct {
	DetectedCityID   int    `json:"detected_city_id"`
	DetectedCityName string `json:"detected_city_name"`
	ImagePath        string `json:"image_path"`
	Matched          bool   `json:"matched"`
}

// CompleteResult 图片识别加灾情分析的完整结果
type CompleteResult struct {
	SatelliteAnalysis SatelliteAnalysis `json:"satellite_analysis"`
	DisasterAnalysis  *disaster.Report  `json:"disaster_analysis"`
	Status            string            `json:"status"`
}

// AnalysisService 串联图片识别与灾情分析
type AnalysisService struct {
	cfg      *config.Config
	cities   *domain.CityRegistry
	resolver CityResolver
	analyzer DisasterAnalyzer
	runRepo  repository.AnalysisRunRepository
}

func NewAnalysisService(cfg *config.Config, cities *domain.CityRegistry, resolver CityResolver, analyzer DisasterAnalyzer, runRepo repository.AnalysisRunRepository) *AnalysisService {
	return &AnalysisService{
		cfg:      cfg,
		cities:   cities,
		resolver: resolver,
		analyzer: analyzer,
		runRepo:  runRepo,
	}
}

// Cities 可分析的城市
func (s *AnalysisService) Cities() *domain.CityRegistry {
	return s.cities
}

// DefaultCity 未识别时使用的城市
func (s *AnalysisService) DefaultCity() domain.City {
	if c, ok := s.cities.Get(s.cfg.Analysis.DefaultCityID); ok {
		return c
	}
	return s.cities.Default()
}

// AnalyzeImage 识别图片中的城市，未命中时回退到默认城市
func (s *AnalysisService) AnalyzeImage(ctx context.Context, imagePath string) ImageAnalysis {
	res := s.resolver.Resolve(ctx, imagePath)
	if res.Matched {
		if c, ok := s.cities.Get(res.CityID); ok {
			return ImageAnalysis{Resolution: res, City: c}
		}
	}

	c := s.DefaultCity()
	klog.Warningf("[Analysis] 未识别出城市，使用默认城市: image=%s, default=%s", imagePath, c.Name)
	return ImageAnalysis{Resolution: res, City: c, Fallback: true}
}

// RunAnalysis 对指定城市执行灾情分析
func (s *AnalysisService) RunAnalysis(ctx context.Context, cityID int) (*disaster.Report, error) {
	return s.analyzer.RunAnalysis(ctx, cityID)
}

// CompleteAnalysis 识别图片后对识别出的城市执行灾情分析
func (s *AnalysisService) CompleteAnalysis(ctx context.Context, imagePath string) (*CompleteResult, error) {
	klog.V(6).Infof("[Analysis] 开始完整分析: image=%s", imagePath)

	image := s.AnalyzeImage(ctx, imagePath)
	klog.V(6).Infof("[Analysis] 选定城市: id=%d, name=%s, fallback=%v", image.City.ID, image.City.Name, image.Fallback)

	report, err := s.analyzer.RunAnalysis(ctx, image.City.ID)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", image.City.Name, err)
	}

	return &CompleteResult{
		SatelliteAnalysis: SatelliteAnalysis{
			DetectedCityID:   image.City.ID,
			DetectedCityName: image.City.Name,
			ImagePath:        imagePath,
			Matched:          !image.Fallback,
		},
		DisasterAnalysis: report,
		Status:           "success",
	}, nil
}

// TestImagePath 测试接口使用的图片
func (s *AnalysisService) TestImagePath() string {
	return s.cfg.Data.TestImage
}

// TestAnalysis 使用配置的示例图片执行完整分析
func (s *AnalysisService) TestAnalysis(ctx context.Context) (*CompleteResult, error) {
	path := s.TestImagePath()
	if path == "" {
		return nil, ErrTestImageNotFound
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTestImageNotFound
		}
		return nil, err
	}
	return s.CompleteAnalysis(ctx, path)
}

// RecentRuns 最近的分析记录
func (s *AnalysisService) RecentRuns(limit int) ([]model.AnalysisRun, error) {
	if s.runRepo == nil {
		return nil, nil
	}
	return s.runRepo.ListRecent(limit)
}

// GetRun 按 run id 查询分析记录
func (s *AnalysisService) GetRun(runID string) (*model.AnalysisRun, error) {
	if s.runRepo == nil {
		return nil, repository.ErrNotFound
	}
	return s.runRepo.GetByRunID(runID)
}
