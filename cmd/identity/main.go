package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/comas-edu/identity-service/internal/adapter"
	natspub "github.com/comas-edu/identity-service/internal/adapter/nats"
	"github.com/comas-edu/identity-service/internal/config"
	"github.com/comas-edu/identity-service/internal/mailer"
	"github.com/comas-edu/identity-service/internal/platform/metrics"
	"github.com/comas-edu/identity-service/internal/repository"
	"github.com/comas-edu/identity-service/internal/sms"
	"github.com/comas-edu/identity-service/internal/token"
	"github.com/comas-edu/identity-service/internal/usecase"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to MongoDB
	mongoCtx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	defer cancel()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err = mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.Mongo.Database)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err = redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Audit event publisher
	auditPublisher, err := natspub.NewPublisher(&cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer auditPublisher.Close()

	// Outbound gateways
	var mailService mailer.Mailer
	switch cfg.Mailer.Provider {
	case "mailersend":
		mailService = mailer.NewMailerSendService(&cfg.Mailer.MailerSend, logger)
	default:
		mailService = mailer.NewSMTPMailerService(&cfg.Mailer.SMTP, logger)
	}
	smsService := sms.NewArkeselService(&cfg.SMS, logger)

	// Metrics
	metricsManager := metrics.NewManager("identity_service")
	go func() {
		if err := metrics.StartMetricsServer(cfg.Metrics.Port, logger, metricsManager.Registry); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	userRepo := repository.NewUserRepository(db, redisClient, logger)
	tokenIssuer := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authUsecase, err := usecase.NewAuthUsecase(
		userRepo,
		mailService,
		smsService,
		auditPublisher,
		tokenIssuer,
		metricsManager,
		usecase.EmailPatternForEnv(cfg.App.Env),
		cfg.App.BaseURL,
		cfg.Auth.BcryptCost,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize auth usecase", zap.Error(err))
	}

	authHandler := adapter.NewAuthHandler(authUsecase, logger)
	router := adapter.NewRouter(authHandler, tokenIssuer, logger)

	httpServerAddr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	logger.Info("Starting Identity Service HTTP server",
		zap.String("address", httpServerAddr), zap.String("env", cfg.App.Env))
	if err := http.ListenAndServe(httpServerAddr, router); err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
