package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dropkit/airdrop-go/pkg/claims"
	"github.com/dropkit/airdrop-go/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixClaim       = "claim:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerClaimStore is a production-ready claim store using Badger.
// Provides durable, disk-based storage with ACID guarantees so claim
// flags survive restarts.
type BadgerClaimStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup

	// mu serializes MarkClaimed so the read-then-set compare-and-set can
	// never race with itself; read paths take it too for the closed flag.
	mu     sync.Mutex
	closed bool
}

var _ claims.IClaimStore = (*BadgerClaimStore)(nil)

// NewBadgerClaimStore creates a new Badger-backed claim store.
// The database is opened at the specified path with SyncWrites enabled for
// durability. A background goroutine is started for garbage collection.
func NewBadgerClaimStore(dataPath string, logger *zap.Logger) (*BadgerClaimStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Configure Badger for production use
	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true // Ensure durability (fsync on every write)
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerClaimStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Start background GC
	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger claim store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerClaimStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			// First time setup - set schema version
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic garbage collection in the background
func (b *BadgerClaimStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// MarkClaimed sets the account's claim flag if not already set.
// The read-then-set runs inside a single Badger transaction, serialized
// by the store mutex.
func (b *BadgerClaimStore) MarkClaimed(record *types.ClaimRecord) (bool, error) {
	if record == nil {
		return false, fmt.Errorf("cannot save nil ClaimRecord")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, fmt.Errorf("claim store is closed")
	}

	data, err := claims.MarshalClaimRecord(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal ClaimRecord: %w", err)
	}

	key := claimKey(record.Account)
	alreadyClaimed := false
	err = b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			alreadyClaimed = true
			return nil
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return false, fmt.Errorf("failed to persist claim for %s: %w", record.Account.Hex(), err)
	}

	return alreadyClaimed, nil
}

// UnmarkClaimed clears the account's claim flag.
func (b *BadgerClaimStore) UnmarkClaimed(account common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("claim store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(claimKey(account))
	})
}

// IsClaimed reports whether the account has claimed.
func (b *BadgerClaimStore) IsClaimed(account common.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, fmt.Errorf("claim store is closed")
	}

	claimed := false
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(claimKey(account))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read claim for %s: %w", account.Hex(), err)
	}

	return claimed, nil
}

// GetClaim retrieves the claim record for an account.
func (b *BadgerClaimStore) GetClaim(account common.Address) (*types.ClaimRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("claim store is closed")
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(claimKey(account))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Not found is not an error
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read claim for %s: %w", account.Hex(), err)
	}

	if data == nil {
		return nil, nil
	}

	return claims.UnmarshalClaimRecord(data)
}

// ListClaims returns all claim records sorted by account address.
func (b *BadgerClaimStore) ListClaims() ([]*types.ClaimRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("claim store is closed")
	}

	result := make([]*types.ClaimRecord, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixClaim)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := claims.UnmarshalClaimRecord(data)
			if err != nil {
				return err
			}
			result = append(result, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Account.Cmp(result[j].Account) < 0
	})

	return result, nil
}

// Close shuts down the store, stopping GC and closing the database.
func (b *BadgerClaimStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	return nil
}

// HealthCheck verifies the store is operational.
func (b *BadgerClaimStore) HealthCheck() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("claim store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version missing")
		}
		return err
	})
}

func claimKey(account common.Address) []byte {
	return []byte(keyPrefixClaim + account.Hex())
}
