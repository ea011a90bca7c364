package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	"github.com/redis/go-redis/v9"
)

const verificationKeyPrefix = "vc:"

// VerificationStore keeps each code as a JSON value under vc:<id> with a
// native Redis expiry. Claims use GETDEL, which is atomic per key.
type VerificationStore struct {
	client redis.Cmdable
}

func NewVerificationStore(client redis.Cmdable) *VerificationStore {
	return &VerificationStore{client: client}
}

func (s *VerificationStore) Put(ctx context.Context, v *domain.VerificationCode, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", domain.ErrBadRequest)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	ok, err := s.client.SetNX(ctx, verificationKeyPrefix+v.ID, payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("verification code id taken: %w", domain.ErrConflict)
	}
	return nil
}

func (s *VerificationStore) DeleteAndReturn(ctx context.Context, id string) (*domain.VerificationCode, error) {
	raw, err := s.client.GetDel(ctx, verificationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v domain.VerificationCode
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal verification code: %w", err)
	}
	return &v, nil
}
