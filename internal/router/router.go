package router

import (
	"net/http"

	"plantdiag/internal/config"
	"plantdiag/internal/events"
	"plantdiag/internal/handler"
	"plantdiag/internal/metrics"
	"plantdiag/internal/middleware"
	"plantdiag/internal/repository"
	"plantdiag/internal/service"
	"plantdiag/internal/storage"
	"plantdiag/internal/utils"
	"plantdiag/pkg/inference"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Infrastructure 路由依赖的外部组件
type Infrastructure struct {
	Detector  inference.DiseaseDetector
	Files     storage.FileStorage
	Publisher events.Publisher
	Reporter  service.ErrorReporter
	Metrics   *metrics.PipelineMetrics
	Gatherer  prometheus.Gatherer
}

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	validator *utils.Validator,
	logger *logrus.Logger,
	db *gorm.DB,
	infra Infrastructure,
) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	r.MaxMultipartMemory = maxUpload

	// 全局中间件
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(&cfg.CORS))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "植物病害诊断 API",
			"version": "1.0.0",
		})
	})
	if infra.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{})))
	}

	// 初始化Repository
	predictionRepo := repository.NewPredictionRepository(db)
	markRepo := repository.NewPredictionMarkRepository(db)
	markTypeRepo := repository.NewMarkTypeRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	recommendationRepo := repository.NewRecommendationRepository(db)
	plotRepo := repository.NewPlotRepository(db)
	imageRepo := repository.NewImageRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 初始化Service
	predictionService := service.NewPredictionService(service.PredictionServiceDeps{
		Detector:        infra.Detector,
		Predictions:     predictionRepo,
		Marks:           markRepo,
		MarkTypes:       markTypeRepo,
		Labels:          labelRepo,
		Recommendations: recommendationRepo,
		Plots:           plotRepo,
		Images:          imageRepo,
		Files:           infra.Files,
		Publisher:       infra.Publisher,
		Reporter:        infra.Reporter,
		Metrics:         infra.Metrics,
		Logger:          logger.WithField("component", "prediction_pipeline"),
	}, service.PredictionServiceOptions{
		Retry: service.RetryPolicy{
			MaxRetries:      cfg.Pipeline.MaxRetries,
			InitialInterval: cfg.Pipeline.GetInitialInterval(),
			MaxInterval:     cfg.Pipeline.GetMaxInterval(),
			MaxElapsed:      cfg.Pipeline.GetMaxElapsed(),
		},
		MarkTypeTTL:    cfg.Pipeline.GetMarkTypeCacheTTL(),
		PersistTimeout: cfg.Pipeline.GetPersistTimeout(),
	})
	imageService := service.NewImageService(imageRepo, infra.Files, logger.WithField("component", "images"))
	dashboardService := service.NewDashboardService(predictionRepo, labelRepo, userRepo, plotRepo)
	plotService := service.NewPlotService(plotRepo, predictionRepo, logger.WithField("component", "plots"))
	catalogService := service.NewCatalogService(labelRepo, recommendationRepo)

	// 初始化Handler
	predictionHandler := handler.NewPredictionHandler(predictionService, imageService, validator, maxUpload)
	imageHandler := handler.NewImageHandler(imageService, maxUpload)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, validator)
	plotHandler := handler.NewPlotHandler(plotService, validator)
	catalogHandler := handler.NewCatalogHandler(catalogService, validator)

	// API路由组
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtManager))
	{
		// 图片与诊断
		api.POST("/images", imageHandler.Upload)
		api.POST("/images/:id/predictions", predictionHandler.CreateFromImage)
		api.POST("/predictions", predictionHandler.Create)
		api.GET("/predictions", predictionHandler.List)
		api.GET("/predictions/:id", predictionHandler.Get)
		api.GET("/predictions/:id/marks", predictionHandler.Marks)
		api.GET("/predictions/:id/marks/:mark_id/data", predictionHandler.MarkData)
		api.DELETE("/predictions/:id", predictionHandler.Delete)

		// 仪表盘
		api.GET("/dashboard/summary", dashboardHandler.Summary)
		api.GET("/dashboard/filters", dashboardHandler.Filters)

		// 地块
		api.POST("/plots", plotHandler.Create)
		api.DELETE("/plots/:id", plotHandler.Delete)
		api.GET("/plots/detailed", plotHandler.ListDetailed)
		api.POST("/plots/:id/assign", plotHandler.Assign)
		api.POST("/plots/:id/unassign", plotHandler.Unassign)

		// 标签与建议
		api.GET("/labels", catalogHandler.Labels)
		api.GET("/recommendations", catalogHandler.Recommendations)

		// 管理员接口
		adminGroup := api.Group("")
		adminGroup.Use(middleware.AdminMiddleware())
		{
			adminGroup.POST("/predictions/:id/reclassify", predictionHandler.Reclassify)
		}
	}

	return r
}
