// File: trustlink/database/repository/grant/grant_redis.go
package grantRepo

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"trustlink/models"
	"trustlink/utils"

	"github.com/go-redis/redis/v8"
)

// generateCode returns an opaque URL-safe single-use code.
func generateCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RedisAuthorizationTransactionStore persists enrollment codes in Redis.
// Redemption uses GETDEL, so exactly one of two concurrent redeemers wins.
type RedisAuthorizationTransactionStore struct {
	client *redis.Client
}

// NewRedisAuthorizationTransactionStore creates the enrollment code store.
func NewRedisAuthorizationTransactionStore(client *redis.Client) *RedisAuthorizationTransactionStore {
	return &RedisAuthorizationTransactionStore{client: client}
}

// Create generates the transaction's code and stores it with the
// transaction's lifetime as TTL.
func (s *RedisAuthorizationTransactionStore) Create(ctx context.Context, tx *models.AuthorizationTransaction) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	tx.Code = code

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization transaction: %w", err)
	}
	key := utils.AuthCodePrefix + code
	if err := s.client.Set(ctx, key, data, tx.Lifetime).Err(); err != nil {
		return fmt.Errorf("failed to store authorization transaction: %w", err)
	}
	return nil
}

// Redeem atomically fetches and deletes the transaction for a code.
func (s *RedisAuthorizationTransactionStore) Redeem(ctx context.Context, code string) (*models.AuthorizationTransaction, error) {
	data, err := s.client.GetDel(ctx, utils.AuthCodePrefix+code).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to redeem authorization transaction: %w", err)
	}
	var tx models.AuthorizationTransaction
	if err := json.Unmarshal([]byte(data), &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization transaction: %w", err)
	}
	return &tx, nil
}

// RedisDeviceGrantChallengeStore persists device login codes in Redis with
// the same single-winner redemption semantics.
type RedisDeviceGrantChallengeStore struct {
	client *redis.Client
}

// NewRedisDeviceGrantChallengeStore creates the device login code store.
func NewRedisDeviceGrantChallengeStore(client *redis.Client) *RedisDeviceGrantChallengeStore {
	return &RedisDeviceGrantChallengeStore{client: client}
}

// Create generates the challenge's code and stores it with its lifetime as TTL.
func (s *RedisDeviceGrantChallengeStore) Create(ctx context.Context, challenge *models.DeviceGrantChallenge) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	challenge.Code = code

	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal device login challenge: %w", err)
	}
	key := utils.DeviceCodePrefix + code
	if err := s.client.Set(ctx, key, data, challenge.Lifetime).Err(); err != nil {
		return fmt.Errorf("failed to store device login challenge: %w", err)
	}
	return nil
}

// Redeem atomically fetches and deletes the challenge for a code.
func (s *RedisDeviceGrantChallengeStore) Redeem(ctx context.Context, code string) (*models.DeviceGrantChallenge, error) {
	data, err := s.client.GetDel(ctx, utils.DeviceCodePrefix+code).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to redeem device login challenge: %w", err)
	}
	var challenge models.DeviceGrantChallenge
	if err := json.Unmarshal([]byte(data), &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device login challenge: %w", err)
	}
	return &challenge, nil
}
