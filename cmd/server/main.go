package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"k8s.io/klog/v2"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/domain"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/eventbus"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/handler"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/adkagents"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/database"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/pkg/vision"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/repository"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/router"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/disaster"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/knowledge"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/orchestrator"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/service/satellite"
	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	ctx := context.Background()
	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Data.UploadDir, 0755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	docRepo := repository.NewCityDocumentRepository(db)
	runRepo := repository.NewAnalysisRunRepository(db)

	// 导入城市资料，文件不存在时使用内置资料
	loaded, err := knowledge.NewLoader(docRepo, domain.Cities).LoadFile(cfg.Data.DossierPath)
	if err != nil {
		log.Fatalf("Failed to load city dossier: %v", err)
	}
	klog.V(6).Infof("城市资料已导入: cities=%d", len(loaded))

	// 启动时清理卡住的分析记录
	cleanupStuckRuns(runRepo, cfg.Analysis.Timeout)

	// 初始化 Agent
	adkagents.NewCallbacks().RegisterGlobal()
	manager, err := adkagents.NewManagerFromConfig(ctx, cfg, docRepo)
	if err != nil {
		log.Fatalf("Failed to initialize agents: %v", err)
	}
	if cfg.Agent.File != "" && cfg.Agent.ReloadInterval > 0 {
		watcher, err := manager.WatchDefinitions(cfg.Agent.ReloadInterval)
		if err != nil {
			klog.Warningf("监听 Agent 定义文件失败: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	// 视觉模型未配置时使用离线识别
	var visionClient vision.Client
	if cfg.Vision.Available() {
		gemini, err := vision.NewGeminiClient(ctx, cfg.Vision)
		if err != nil {
			klog.Warningf("创建视觉模型客户端失败，使用离线识别: %v", err)
		} else {
			visionClient = gemini
		}
	} else {
		klog.Warningf("未配置视觉模型 API Key，使用离线识别")
	}
	resolver := satellite.NewResolver(cfg, domain.Cities, visionClient)

	// 事件总线
	bus := eventbus.NewAnalysisEventBus()
	subscriber.NewAnalysisRunSubscriber(runRepo).Register(bus)

	// 任务图执行器，协程池大小限制全局并发
	executor, err := orchestrator.NewExecutor(cfg.Analysis.MaxWorkers, disaster.NewAgentRunner(manager), bus)
	if err != nil {
		log.Fatalf("Failed to initialize executor: %v", err)
	}
	defer executor.Stop(30 * time.Second)

	// 初始化 Service
	disasterService := disaster.NewService(cfg.Analysis, domain.Cities, executor, manager, bus)
	analysisService := service.NewAnalysisService(cfg, domain.Cities, resolver, disasterService, runRepo)

	// 初始化 Handler
	analysisHandler := handler.NewAnalysisHandler(analysisService, cfg.Data.UploadDir)

	// 设置路由
	r := router.Setup(cfg, analysisHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// cleanupStuckRuns 进程重启前未完成的分析标记为失败
func cleanupStuckRuns(runRepo repository.AnalysisRunRepository, timeout time.Duration) {
	affected, err := runRepo.CleanupStuckRuns(timeout)
	if err != nil {
		klog.V(6).Infof("清理卡住的分析记录失败: %v", err)
		return
	}

	if affected > 0 {
		klog.V(6).Infof("启动时清理了 %d 个卡住的分析记录", affected)
	}
}
