package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-verify-nosql/internal/application/account"
	"github.com/go-verify-nosql/internal/application/identity"
	"github.com/go-verify-nosql/internal/application/notification"
	"github.com/go-verify-nosql/internal/application/verification"
	"github.com/go-verify-nosql/internal/config"
	"github.com/go-verify-nosql/internal/domain"
	"github.com/go-verify-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verify-nosql/internal/infrastructure/jwt"
	s3infra "github.com/go-verify-nosql/internal/infrastructure/s3"
	"github.com/go-verify-nosql/internal/infrastructure/smtp"
	"github.com/go-verify-nosql/internal/infrastructure/sns"
	transporthttp "github.com/go-verify-nosql/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("DynamoDB client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	codes, err := openCodeStore(ctx, cfg, dynamoClient)
	if err != nil {
		log.Fatalf("verification store: %v", err)
	}
	defer codes.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := verification.NewMetrics(reg)

	registry := verification.NewRegistry(codes.store,
		verification.WithTTL(domain.ContextRegister, cfg.RegisterCodeTTL),
		verification.WithTTL(domain.ContextReset, cfg.ResetCodeTTL),
		verification.WithMetrics(metrics),
	)
	if codes.purger != nil {
		go verification.NewJanitor(codes.purger, cfg.JanitorInterval, metrics).Run(ctx)
	}

	idp := identity.NewService(identity.ServiceDeps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo: dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		JWTProvider: jwtProvider,
		SessionTTL:  cfg.JWTExpiry,
	})

	dispatcher := notification.NewDispatcher(newSender(ctx, cfg), 0)

	accounts := account.NewService(account.ServiceDeps{
		Registry: registry,
		Identity: idp,
		Notifier: dispatcher,
		AppURL:   cfg.AppURL,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Accounts: accounts,
		Identity: idp,
		Tokens:   jwtProvider,
		Store:    codes.ping,
		Registry: reg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	dispatcher.Wait()
	slog.Info("server stopped")
}

func newLogger(env string) *slog.Logger {
	if env == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// newSender wires email delivery and, when a topic is configured, SNS publishing.
func newSender(ctx context.Context, cfg *config.Config) notification.Sender {
	templates := notification.DefaultTemplates()
	if cfg.TemplateBucket != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("S3 client: %v", err)
		}
		templates, err = notification.LoadTemplates(ctx, s3infra.NewTemplateStore(client, cfg.TemplateBucket))
		if err != nil {
			log.Fatalf("notification templates: %v", err)
		}
	}

	senders := notification.Multi{notification.NewEmailSender(smtp.NewMailer(cfg), templates)}
	if cfg.SNSTopicARN != "" {
		publisher, err := sns.NewPublisher(cfg)
		if err != nil {
			log.Fatalf("SNS publisher: %v", err)
		}
		senders = append(senders, publisher)
	}
	return senders
}
