package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/disaster"
)

type analysisService interface {
	Cities() *domain.CityRegistry
	DefaultCity() domain.City
	AnalyzeImage(ctx context.Context, imagePath string) service.ImageAnalysis
	RunAnalysis(ctx context.Context, cityID int) (*disaster.Report, error)
	CompleteAnalysis(ctx context.Context, imagePath string) (*service.CompleteResult, error)
	TestAnalysis(ctx context.Context) (*service.CompleteResult, error)
	TestImagePath() string
	RecentRuns(limit int) ([]model.AnalysisRun, error)
	GetRun(runID string) (*model.AnalysisRun, error)
}

type AnalysisHandler struct {
	service   analysisService
	uploadDir string
}

func NewAnalysisHandler(service analysisService, uploadDir string) *AnalysisHandler {
	return &AnalysisHandler{
		service:   service,
		uploadDir: uploadDir,
	}
}

// Cities GET /cities/
func (h *AnalysisHandler) Cities(c *gin.Context) {
	cities := h.service.Cities()
	c.JSON(http.StatusOK, gin.H{
		"cities":       cities.NameMap(),
		"total_cities": cities.Len(),
		"status":       "success",
	})
}

// AnalyzeImage POST /analyze-image/
func (h *AnalysisHandler) AnalyzeImage(c *gin.Context) {
	upload, err := saveImageUpload(c, h.uploadDir)
	defer upload.Remove()
	if err != nil {
		h.uploadError(c, err, "Error processing image")
		return
	}

	result := h.service.AnalyzeImage(c.Request.Context(), upload.Path)
	cities := h.service.Cities()

	message := fmt.Sprintf("Successfully identified %s", result.City.Name)
	if result.Fallback {
		message = fmt.Sprintf("Could not identify city, using default (%s)", result.City.Name)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          !result.Fallback,
		"city_number":      result.City.ID,
		"city_name":        result.City.Name,
		"message":          message,
		"filename":         upload.Filename,
		"available_cities": cities.NameMap(),
		"mock":             result.Resolution.Mock,
	})
}

// AnalyzeCity GET /analyze-city/:city_id
func (h *AnalysisHandler) AnalyzeCity(c *gin.Context) {
	cities := h.service.Cities()
	invalid := fmt.Sprintf("Invalid city_id. Must be between 1 and %d", cities.Len())

	cityID, err := strconv.Atoi(c.Param("city_id"))
	if err != nil || !cities.Exists(cityID) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": invalid})
		return
	}

	city, _ := cities.Get(cityID)
	klog.V(6).Infof("[Handler] 开始灾情分析: city=%d, name=%s", city.ID, city.Name)

	report, err := h.service.RunAnalysis(c.Request.Context(), cityID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCity) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": invalid})
			return
		}
		klog.Errorf("[Handler] 灾情分析失败: city=%d, err=%v", cityID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error running disaster analysis: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"city_id":           city.ID,
		"city_name":         city.Name,
		"disaster_analysis": report,
		"message":           fmt.Sprintf("Disaster analysis completed for %s", city.Name),
	})
}

// CompleteAnalysis POST /complete-analysis/
func (h *AnalysisHandler) CompleteAnalysis(c *gin.Context) {
	upload, err := saveImageUpload(c, h.uploadDir)
	defer upload.Remove()
	if err != nil {
		h.uploadError(c, err, "Error in complete analysis")
		return
	}

	klog.V(6).Infof("[Handler] 开始完整分析: filename=%s", upload.Filename)
	result, err := h.service.CompleteAnalysis(c.Request.Context(), upload.Path)
	if err != nil {
		klog.Errorf("[Handler] 完整分析失败: filename=%s, err=%v", upload.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error in complete analysis: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"satellite_analysis": result.SatelliteAnalysis,
		"disaster_analysis":  result.DisasterAnalysis,
		"status":             result.Status,
		"filename":           upload.Filename,
	})
}

// TestAnalysis GET /test-analysis/
func (h *AnalysisHandler) TestAnalysis(c *gin.Context) {
	path := h.service.TestImagePath()
	result, err := h.service.TestAnalysis(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrTestImageNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success":    false,
				"message":    "Default test image not found",
				"image_path": path,
			})
			return
		}
		klog.Errorf("[Handler] 测试分析失败: image=%s, err=%v", path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error in test analysis: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"satellite_analysis": result.SatelliteAnalysis,
		"disaster_analysis":  result.DisasterAnalysis,
		"status":             result.Status,
		"test_mode":          true,
		"image_path":         path,
	})
}

func (h *AnalysisHandler) uploadError(c *gin.Context, err error, prefix string) {
	switch {
	case errors.Is(err, ErrNotImage):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "File must be an image"})
	case errors.Is(err, ErrMissingFile):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "File is required"})
	default:
		klog.Errorf("[Handler] 上传处理失败: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": prefix + ": " + err.Error()})
	}
}
