package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugdojo/internal/common/cache"
	"bugdojo/internal/common/db"
	commonmw "bugdojo/internal/common/http/middleware"
	"bugdojo/internal/common/mq"
	"bugdojo/internal/common/storage"
	"bugdojo/internal/grader/aigen"
	"bugdojo/internal/grader/controller"
	"bugdojo/internal/grader/repository"
	"bugdojo/internal/grader/sandbox"
	"bugdojo/internal/grader/sandbox/engine"
	"bugdojo/internal/grader/sandbox/toolchain"
	"bugdojo/internal/grader/service"
	"bugdojo/pkg/utils/logger"
)

const defaultConfigPath = "configs/grader_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	var mysqlDB *db.MySQL
	if appCfg.Database.DSN != "" {
		mysqlDB, err = db.NewMySQLWithConfig(&appCfg.Database)
		if err != nil {
			logger.Error(ctx, "init database failed", zap.Error(err))
			return
		}
		defer func() {
			_ = mysqlDB.Close()
		}()
	} else {
		logger.Warn(ctx, "no database configured, serving demo problems only")
	}

	var redisCache cache.Cache
	if appCfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(ctx, "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = rc.Close()
		}()
		redisCache = rc
	}

	var producer mq.Producer
	if len(appCfg.Kafka.Brokers) > 0 {
		kp, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			logger.Error(ctx, "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = kp.Close()
		}()
		producer = kp
	}

	var objStorage storage.ObjectStorage
	if appCfg.MinIO.Endpoint != "" {
		ms, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(ctx, "init minio failed", zap.Error(err))
			return
		}
		objStorage = ms
	}

	resolver := toolchain.Resolver{}
	if appCfg.Engine.EnableSeccomp {
		resolver.SeccompProfiles = toolchain.DefaultSeccompProfiles()
	}
	sandboxEngine, err := engine.NewEngine(appCfg.Engine, resolver)
	if err != nil {
		logger.Error(ctx, "init sandbox engine failed", zap.Error(err))
		return
	}
	executor := sandbox.NewExecutor(appCfg.Executor, sandboxEngine)

	problemRepo := repository.NewProblemRepository(mysqlDB, redisCache)
	publisher := repository.NewReportPublisher(producer)
	archive := repository.NewSubmissionArchive(objStorage, appCfg.Archive.Bucket)

	gradeService := service.NewGradeService(executor, problemRepo, publisher, archive, appCfg.Grading)
	authorService := service.NewAuthorService(aigen.NewClient(appCfg.AIGen), executor, problemRepo)

	httpServer := buildHTTPServer(appCfg.Server, executor, gradeService, authorService)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(ctx, "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "grader http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	stopCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(stopCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, executor service.Executor,
	gradeService *service.GradeService, authorService *service.AuthorService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1/grader")
	graderController := controller.NewGraderController(executor, gradeService, authorService)
	graderController.RegisterRoutes(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
