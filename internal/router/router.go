package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/handler"
)

func Setup(cfg *config.Config, analysisHandler *handler.AnalysisHandler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/", handler.Info)
	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/cities/", analysisHandler.Cities)
	r.POST("/analyze-image/", analysisHandler.AnalyzeImage)
	r.GET("/analyze-city/:city_id", analysisHandler.AnalyzeCity)
	r.POST("/complete-analysis/", analysisHandler.CompleteAnalysis)
	r.GET("/test-analysis/", analysisHandler.TestAnalysis)

	analyses := r.Group("/analyses")
	{
		analyses.GET("/", analysisHandler.ListRuns)
		analyses.GET("/:run_id", analysisHandler.GetRun)
	}

	return r
}
