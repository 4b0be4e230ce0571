package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/types"
)

const (
	keyPrefix = "credential:"

	// audit indexes: prefixed identity scored by epoch seconds
	lastAccessedSet = "last_accessed"
	lastUpdatedSet  = "last_updated"

	fieldSymmetricKey = "symmetric_key"
	fieldPrimary      = "primary"
	fieldSecondary    = "secondary"
	fieldDescription  = "description"
	fieldLastAccess   = "last_access"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"

	scanCount = 100
)

// CredentialStore is keyed storage of credentials plus the two time-ordered
// audit indexes. Implementations must keep an entry and its index scores in
// step: no operation may leave one updated without the other.
type CredentialStore interface {
	// Get loads the credential for identity and, in the same transaction,
	// advances last_access and its index score. Missing identities return
	// types.ErrNotFound and leave no trace in the indexes.
	Get(ctx context.Context, identity string) (*types.Credential, error)
	// Upsert replaces any stored entry for entry.Identity in full, setting
	// created_at on first write and updated_at/last_access on every write.
	Upsert(ctx context.Context, entry *types.Credential) error
	// Delete removes the entry and its index members, reporting whether an
	// entry existed.
	Delete(ctx context.Context, identity string) (bool, error)
	// ListIdentities returns every stored identity via an incremental scan.
	ListIdentities(ctx context.Context) ([]string, error)
	// AccessedBetween returns identities whose last access falls in
	// [from, to], bounds inclusive.
	AccessedBetween(ctx context.Context, from time.Time, to time.Time) ([]string, error)
}

// RedisCredentialStore stores each credential as a hash under
// credential:<identity> and maintains the last_accessed / last_updated
// sorted sets. The read side effect runs under WATCH so a concurrent upsert
// aborts the read's commit instead of being overwritten; conflicts surface
// as types.ErrConflict and are not retried here (callers simply reissue).
type RedisCredentialStore struct {
	client *redis.Client
}

func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{client: client}
}

func (s *RedisCredentialStore) Get(ctx context.Context, identity string) (*types.Credential, error) {
	key := credentialKey(identity)
	var entry *types.Credential

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		// skip the transaction entirely when the key does not exist, so a
		// miss never plants an index member
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return types.ErrNotFound
		}

		values, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}

		now := time.Now()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldLastAccess, types.NewTimestamp(now).String())
			pipe.ZAdd(ctx, lastAccessedSet, redis.Z{Score: float64(now.Unix()), Member: key})
			return nil
		})
		if err != nil {
			return err
		}

		entry, err = credentialFromMap(identity, values)
		if err != nil {
			return err
		}
		entry.LastAccess = types.NewTimestamp(now)
		return nil
	}, key)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, types.ErrNotFound):
		return nil, types.ErrNotFound
	case errors.Is(err, redis.TxFailedErr):
		return nil, fmt.Errorf("%w: credential %s modified during read", types.ErrConflict, key)
	default:
		return nil, fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
}

func (s *RedisCredentialStore) Upsert(ctx context.Context, entry *types.Credential) error {
	now := time.Now()
	if entry.CreatedAt == nil {
		entry.CreatedAt = types.NewTimestamp(now)
	}
	entry.UpdatedAt = types.NewTimestamp(now)
	entry.LastAccess = types.NewTimestamp(now)

	key := credentialKey(entry.Identity)
	score := float64(now.Unix())
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// full replace: drop the old hash so absent fields stay absent
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, credentialToMap(entry))
		pipe.ZAdd(ctx, lastAccessedSet, redis.Z{Score: score, Member: key})
		pipe.ZAdd(ctx, lastUpdatedSet, redis.Z{Score: score, Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save credential: %v", types.ErrStorage, err)
	}
	return nil
}

func (s *RedisCredentialStore) Delete(ctx context.Context, identity string) (bool, error) {
	key := credentialKey(identity)
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, key)
		pipe.ZRem(ctx, lastAccessedSet, key)
		pipe.ZRem(ctx, lastUpdatedSet, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete credential: %v", types.ErrStorage, err)
	}
	return deleted.Val() != 0, nil
}

func (s *RedisCredentialStore) ListIdentities(ctx context.Context) ([]string, error) {
	identities := make([]string, 0)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		identities = append(identities, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to scan credentials: %v", types.ErrStorage, err)
	}
	return identities, nil
}

func (s *RedisCredentialStore) AccessedBetween(ctx context.Context, from time.Time, to time.Time) ([]string, error) {
	members, err := s.client.ZRangeByScore(ctx, lastAccessedSet, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.Unix(), 10),
		Max: strconv.FormatInt(to.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query access index: %v", types.ErrStorage, err)
	}
	identities := make([]string, 0, len(members))
	for _, member := range members {
		identities = append(identities, strings.TrimPrefix(member, keyPrefix))
	}
	return identities, nil
}

func credentialKey(identity string) string {
	return keyPrefix + identity
}

func credentialToMap(entry *types.Credential) map[string]string {
	values := map[string]string{
		fieldSymmetricKey: entry.SymmetricKey,
		fieldPrimary:      entry.Primary,
		fieldLastAccess:   entry.LastAccess.String(),
		fieldCreatedAt:    entry.CreatedAt.String(),
		fieldUpdatedAt:    entry.UpdatedAt.String(),
	}
	// secondary and description round-trip as absent, not as empty strings
	if entry.Secondary != "" {
		values[fieldSecondary] = entry.Secondary
	}
	if entry.Description != "" {
		values[fieldDescription] = entry.Description
	}
	return values
}

func credentialFromMap(identity string, values map[string]string) (*types.Credential, error) {
	if len(values) == 0 {
		return nil, types.ErrNotFound
	}
	entry := &types.Credential{
		Identity:     identity,
		SymmetricKey: values[fieldSymmetricKey],
		Primary:      values[fieldPrimary],
		Secondary:    values[fieldSecondary],
		Description:  values[fieldDescription],
	}
	for field, target := range map[string]**types.Timestamp{
		fieldLastAccess: &entry.LastAccess,
		fieldCreatedAt:  &entry.CreatedAt,
		fieldUpdatedAt:  &entry.UpdatedAt,
	} {
		if raw, ok := values[field]; ok && raw != "" {
			ts, err := types.ParseTimestamp(raw)
			if err != nil {
				global.Logger.Log("StorageError", "RedisCredentialStore.credentialFromMap", "field", field, "error", err.Error())
				return nil, err
			}
			*target = ts
		}
	}
	return entry, nil
}
