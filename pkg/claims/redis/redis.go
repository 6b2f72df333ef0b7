package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropkit/airdrop-go/pkg/claims"
	"github.com/dropkit/airdrop-go/pkg/types"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixClaim       = "airdrop:claim:"
	keySchemaVersion     = "airdrop:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetClaims = "airdrop:claims:index"

	opTimeout = 5 * time.Second
)

// RedisClaimStore is a claim store backed by Redis, suitable for running
// several claim-server replicas against one shared claim state. The
// at-most-once guarantee comes from SETNX: exactly one replica wins the
// flag for an account.
type RedisClaimStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

var _ claims.IClaimStore = (*RedisClaimStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys, for running
	// several campaigns against one Redis. If empty, keys use the default
	// "airdrop:" prefix only.
	KeyPrefix string
}

// NewRedisClaimStore creates a new Redis-backed claim store.
func NewRedisClaimStore(cfg *RedisConfig, logger *zap.Logger) (*RedisClaimStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisClaimStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis claim store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisClaimStore) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisClaimStore) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		// First time setup - set schema version
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// MarkClaimed sets the account's claim flag if not already set.
// SETNX makes the check-and-set atomic across replicas.
func (r *RedisClaimStore) MarkClaimed(record *types.ClaimRecord) (bool, error) {
	if record == nil {
		return false, fmt.Errorf("cannot save nil ClaimRecord")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, fmt.Errorf("claim store is closed")
	}

	data, err := claims.MarshalClaimRecord(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal ClaimRecord: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := r.prefixKey(keyPrefixClaim + record.Account.Hex())
	set, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to persist claim for %s: %w", record.Account.Hex(), err)
	}
	if !set {
		return true, nil
	}

	if err := r.client.SAdd(ctx, r.prefixKey(keySetClaims), record.Account.Hex()).Err(); err != nil {
		return false, fmt.Errorf("failed to index claim for %s: %w", record.Account.Hex(), err)
	}

	return false, nil
}

// UnmarkClaimed clears the account's claim flag.
func (r *RedisClaimStore) UnmarkClaimed(account common.Address) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("claim store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.prefixKey(keyPrefixClaim+account.Hex())).Err(); err != nil {
		return fmt.Errorf("failed to delete claim for %s: %w", account.Hex(), err)
	}

	if err := r.client.SRem(ctx, r.prefixKey(keySetClaims), account.Hex()).Err(); err != nil {
		return fmt.Errorf("failed to unindex claim for %s: %w", account.Hex(), err)
	}

	return nil
}

// IsClaimed reports whether the account has claimed.
func (r *RedisClaimStore) IsClaimed(account common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, fmt.Errorf("claim store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.prefixKey(keyPrefixClaim+account.Hex())).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read claim for %s: %w", account.Hex(), err)
	}

	return n > 0, nil
}

// GetClaim retrieves the claim record for an account.
func (r *RedisClaimStore) GetClaim(account common.Address) (*types.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("claim store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixClaim+account.Hex())).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read claim for %s: %w", account.Hex(), err)
	}

	return claims.UnmarshalClaimRecord(data)
}

// ListClaims returns all claim records sorted by account address.
func (r *RedisClaimStore) ListClaims() ([]*types.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("claim store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	members, err := r.client.SMembers(ctx, r.prefixKey(keySetClaims)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list claim index: %w", err)
	}

	result := make([]*types.ClaimRecord, 0, len(members))
	for _, member := range members {
		data, err := r.client.Get(ctx, r.prefixKey(keyPrefixClaim+member)).Bytes()
		if err == redis.Nil {
			continue // Removed between SMembers and Get
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read claim for %s: %w", member, err)
		}
		record, err := claims.UnmarshalClaimRecord(data)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Account.Cmp(result[j].Account) < 0
	})

	return result, nil
}

// Close shuts down the store.
func (r *RedisClaimStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck verifies the store is operational.
func (r *RedisClaimStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("claim store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
