package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmgate/farmgate-api/internal/config"
	"github.com/farmgate/farmgate-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/farmgate/farmgate-api/internal/infrastructure/jwt"
	"github.com/farmgate/farmgate-api/internal/infrastructure/notify"
	redisinfra "github.com/farmgate/farmgate-api/internal/infrastructure/redis"
	s3infra "github.com/farmgate/farmgate-api/internal/infrastructure/s3"
	"github.com/farmgate/farmgate-api/internal/infrastructure/smtp"
	"github.com/farmgate/farmgate-api/internal/infrastructure/sns"
	transporthttp "github.com/farmgate/farmgate-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Token signing is not optional: a missing or shared secret must stop
	// the process here, not fail the first login.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Redis challenge store.
	redisClient := redisinfra.NewClient(cfg)
	challengeStore := redisinfra.NewChallengeStore(redisClient)

	// S3 store for product images.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// OTP transports. Either may be unavailable; the dispatcher fails the
	// affected channel instead of the whole process.
	mailer := smtp.NewMailer(cfg)
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}
	dispatcher := notify.NewDispatcher(smsSender, mailer)

	deps := &transporthttp.Deps{
		FarmerRepo:     dynamo.NewFarmerRepo(dynamoClient, cfg.DynamoTables.Farmers),
		ChallengeStore: challengeStore,
		S3Store:        s3Store,
		Dispatcher:     dispatcher,
		JWTProvider:    jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	_ = redisClient.Close()
	log.Println("Server stopped")
}
