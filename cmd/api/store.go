package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-verify-nosql/internal/application/verification"
	"github.com/go-verify-nosql/internal/config"
	"github.com/go-verify-nosql/internal/infrastructure/dynamo"
	"github.com/go-verify-nosql/internal/infrastructure/memory"
	"github.com/go-verify-nosql/internal/infrastructure/postgres"
	redisinfra "github.com/go-verify-nosql/internal/infrastructure/redis"
	"github.com/go-verify-nosql/internal/transport/http/handler"
)

// codeStore is the verification backend selected by STORE_BACKEND.
type codeStore struct {
	store verification.Store
	// purger is set for backends without native expiry.
	purger verification.Purger
	ping   handler.Pinger
	close  func()
}

func openCodeStore(ctx context.Context, cfg *config.Config, dynamoClient *dynamodb.Client) (*codeStore, error) {
	switch cfg.StoreBackend {
	case config.StoreDynamo:
		table := cfg.DynamoTables.VerificationCodes
		return &codeStore{
			store: dynamo.NewVerificationRepo(dynamoClient, table),
			ping: handler.PingFunc(func(ctx context.Context) error {
				_, err := dynamoClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
				return err
			}),
			close: func() {},
		}, nil

	case config.StoreRedis:
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &codeStore{
			store: redisinfra.NewVerificationStore(client),
			ping:  handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() }),
			close: func() { _ = client.Close() },
		}, nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s := postgres.NewVerificationStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &codeStore{store: s, purger: s, ping: handler.PingFunc(pool.Ping), close: pool.Close}, nil

	case config.StoreMemory:
		s := memory.NewVerificationStore()
		return &codeStore{store: s, purger: s, close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
