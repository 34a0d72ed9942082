package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/andresgmz/account-service/internal/adapter"
	"github.com/andresgmz/account-service/internal/config"
	"github.com/andresgmz/account-service/internal/events"
	"github.com/andresgmz/account-service/internal/hasher"
	"github.com/andresgmz/account-service/internal/mailer"
	"github.com/andresgmz/account-service/internal/metrics"
	"github.com/andresgmz/account-service/internal/repository"
	"github.com/andresgmz/account-service/internal/token"
	"github.com/andresgmz/account-service/internal/usecase"
	"github.com/andresgmz/account-service/internal/verification"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err = mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.MongoDB)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err = redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Connect to NATS when configured; lifecycle events are optional.
	var publisher usecase.EventPublisher
	if cfg.NATSUrl != "" {
		natsPublisher, err := events.NewPublisher(cfg.NATSUrl, 5*time.Second, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	mail, err := buildMailer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to configure mailer", zap.Error(err))
	}

	metricsManager := metrics.NewManager("account_service")
	go func() {
		if err := metrics.StartServer(cfg.MetricsPort, logger, metricsManager.Registry); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	userRepo := repository.NewUserRepository(db, logger)
	codeRepo := repository.NewVerificationCodeRepository(db, logger)
	codeStore := verification.NewStore(codeRepo, redisClient, logger)
	issuer := token.NewIssuer(cfg.JWTSecret)
	bcryptHasher := hasher.NewBcryptHasher(cfg.BcryptCost)

	accountUsecase := usecase.NewAccountUsecase(userRepo, codeStore, bcryptHasher, issuer, mail, publisher, metricsManager, logger)
	accountHandler := adapter.NewAccountHandler(accountUsecase, logger)
	router := adapter.NewRouter(accountHandler)

	logger.Info("Starting Account Service", zap.Int("port", cfg.Port))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), router); err != nil {
		logger.Fatal("Failed to serve HTTP", zap.Error(err))
	}
}

func buildMailer(cfg *config.Config, logger *zap.Logger) (mailer.Mailer, error) {
	switch cfg.MailerDriver {
	case "mailersend":
		return mailer.NewMailerSendMailer(cfg.MailerSendAPIKey, cfg.SenderEmail, cfg.SenderName, logger), nil
	case "smtp":
		return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SenderEmail, cfg.SenderName, logger)
	default:
		return nil, fmt.Errorf("unknown mailer driver %q", cfg.MailerDriver)
	}
}
