package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pharmacy/api/swagger" // swagger docs
	"pharmacy/internal/cache"
	"pharmacy/internal/config"
	"pharmacy/internal/database"
	"pharmacy/internal/handler"
	"pharmacy/internal/messaging"
	"pharmacy/internal/middleware"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"
	"pharmacy/internal/websocket"
	"pharmacy/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Pharmacy Inventory API
// @version         1.0
// @description     Medicine catalog, batch stock, supplier orders, point-of-sale and reporting.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("pharmacy-api", config.EnvDevelopment).Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New("pharmacy-api", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Redis is optional; without it the dashboard is computed on every request.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, dashboard caching disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	dashboardCache := cache.New(redisClient, cfg.DashboardCacheTTL)

	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	publishers := []service.EventPublisher{wsHub}
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rmq, err = messaging.Dial(cfg.RabbitMQURL, log.WithComponent("rabbitmq"))
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events stay in-process")
			rmq = nil
		} else {
			defer rmq.Close()
			publisher, perr := messaging.NewPublisher(rmq, cfg.RabbitMQExchange, "pharmacy-api", log)
			if perr != nil {
				log.Warn().Err(perr).Msg("failed to declare exchange")
			} else {
				publishers = append(publishers, publisher)
			}
		}
	}
	notifier := service.NewNotifier(log, dashboardCache, publishers...)

	settings := service.Settings{
		OperationTimeout:  cfg.OperationTimeout,
		LowStockThreshold: cfg.LowStockThreshold,
		ExpiringSoonDays:  cfg.ExpiringSoonDays,
	}

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	medicineRepo := repository.NewMedicineRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	prescriptionRepo := repository.NewPrescriptionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	ledger := service.NewBatchLedger(batchRepo, sequenceRepo)
	activityService := service.NewActivityService(activityRepo)
	catalogService := service.NewCatalogService(medicineRepo, userRepo, ledger, activityService, txManager, notifier, settings, log)
	orderService := service.NewOrderService(medicineRepo, orderRepo, sequenceRepo, userRepo, ledger, activityService, txManager, notifier, settings, log)
	saleService := service.NewSaleService(medicineRepo, batchRepo, saleRepo, prescriptionRepo, userRepo, ledger, activityService, txManager, notifier, settings, log)
	transactionService := service.NewTransactionService(saleRepo, settings)
	prescriptionService := service.NewPrescriptionService(prescriptionRepo, settings)
	dashboardService := service.NewDashboardService(dashboardRepo, dashboardCache, settings)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.ConfigureBinding()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Secure(cfg.IsProduction()))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	secret := []byte(cfg.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.Resolver(secret))
	})

	handler.NewHealthHandler(db, redisClient, rmq).RegisterRoutes(router.Group(""))

	authed := router.Group("", middleware.Authenticate(secret))
	handler.NewMedicineHandler(catalogService, saleService).RegisterRoutes(authed)
	handler.NewOrderHandler(orderService).RegisterRoutes(authed)
	handler.NewReportHandler(transactionService, prescriptionService).RegisterRoutes(authed)
	handler.NewDashboardHandler(dashboardService).RegisterRoutes(authed)
	handler.NewActivityHandler(activityService).RegisterRoutes(authed)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
