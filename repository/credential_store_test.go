package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credstorage/go-credential-server/types"
)

func newTestStore(t *testing.T) (*RedisCredentialStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCredentialStore(client), mr, client
}

func testEntry(identity string) *types.Credential {
	return &types.Credential{
		Identity:     identity,
		SymmetricKey: "a2V5",
		Primary:      "cHJpbWFyeQ==",
		Secondary:    "c2Vjb25kYXJ5",
	}
}

func TestGetMissingLeavesNoTrace(t *testing.T) {
	store, mr, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, types.ErrNotFound)

	// a miss must not plant a hash or an index member
	assert.False(t, mr.Exists("credential:nonexistent"))
	assert.False(t, mr.Exists(lastAccessedSet))
}

func TestUpsertAndGet(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("abc")
	require.NoError(t, store.Upsert(ctx, entry))
	require.NotNil(t, entry.CreatedAt)
	require.NotNil(t, entry.UpdatedAt)

	fetched, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", fetched.Identity)
	assert.Equal(t, entry.SymmetricKey, fetched.SymmetricKey)
	assert.Equal(t, entry.Primary, fetched.Primary)
	assert.Equal(t, entry.Secondary, fetched.Secondary)
	assert.Equal(t, entry.CreatedAt.String(), fetched.CreatedAt.String())

	// the read refreshed last_access in the hash and its index score
	raw := mr.HGet("credential:abc", "last_access")
	assert.Equal(t, fetched.LastAccess.String(), raw)
	score, sErr := mr.ZScore(lastAccessedSet, "credential:abc")
	require.NoError(t, sErr)
	assert.InDelta(t, float64(time.Now().Unix()), score, 2)
}

func TestGetUpdatesLastAccessMonotonically(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testEntry("abc")))

	first, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	second, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, second.LastAccess.Before(first.LastAccess.Time))
}

func TestUpsertAbsentSecondaryRoundTrips(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("abc")
	entry.Secondary = ""
	require.NoError(t, store.Upsert(ctx, entry))

	// absent, not an empty string field
	fields, err := mr.HKeys("credential:abc")
	require.NoError(t, err)
	assert.NotContains(t, fields, "secondary")

	fetched, gErr := store.Get(ctx, "abc")
	require.NoError(t, gErr)
	assert.Empty(t, fetched.Secondary)
}

func TestUpsertReplacesInFull(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	first := testEntry("abc")
	require.NoError(t, store.Upsert(ctx, first))

	second := testEntry("abc")
	second.SymmetricKey = "bmV3a2V5"
	second.Primary = "bmV3"
	second.Secondary = ""
	second.CreatedAt = first.CreatedAt
	require.NoError(t, store.Upsert(ctx, second))

	fetched, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "bmV3a2V5", fetched.SymmetricKey)
	assert.Equal(t, "bmV3", fetched.Primary)
	assert.Empty(t, fetched.Secondary)
	assert.Equal(t, first.CreatedAt.String(), fetched.CreatedAt.String())

	score, sErr := mr.ZScore(lastUpdatedSet, "credential:abc")
	require.NoError(t, sErr)
	assert.InDelta(t, float64(time.Now().Unix()), score, 2)
}

func TestDeleteRemovesEntryAndIndexes(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testEntry("abc")))

	deleted, err := store.Delete(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.False(t, mr.Exists("credential:abc"))
	_, aErr := mr.ZScore(lastAccessedSet, "credential:abc")
	assert.Error(t, aErr)
	_, uErr := mr.ZScore(lastUpdatedSet, "credential:abc")
	assert.Error(t, uErr)

	deleted, err = store.Delete(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListIdentities(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	identities, err := store.ListIdentities(ctx)
	require.NoError(t, err)
	assert.Empty(t, identities)

	for _, identity := range []string{"abc", "def", "ghi"} {
		require.NoError(t, store.Upsert(ctx, testEntry(identity)))
	}

	identities, err = store.ListIdentities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abc", "def", "ghi"}, identities)
}

func TestAccessedBetween(t *testing.T) {
	store, _, client := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testEntry("recent")))
	require.NoError(t, store.Upsert(ctx, testEntry("stale")))

	// backdate the stale entry's access score by an hour
	backdated := float64(time.Now().Add(-time.Hour).Unix())
	require.NoError(t, client.ZAdd(ctx, lastAccessedSet, redis.Z{Score: backdated, Member: "credential:stale"}).Err())

	now := time.Now()
	identities, err := store.AccessedBetween(ctx, now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"recent"}, identities)

	identities, err = store.AccessedBetween(ctx, now.Add(-2*time.Hour), now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"recent", "stale"}, identities)
}

// interferingWriteHook mutates a watched key right before the first
// transaction pipeline commits, so the WATCH is guaranteed to abort.
type interferingWriteHook struct {
	writer *redis.Client
	key    string
	fired  bool
}

func (h *interferingWriteHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *interferingWriteHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *interferingWriteHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if !h.fired {
			h.fired = true
			if err := h.writer.HSet(ctx, h.key, "description", "changed underneath").Err(); err != nil {
				return err
			}
		}
		return next(ctx, cmds)
	}
}

func TestGetConflictsWithConcurrentWrite(t *testing.T) {
	store, mr, client := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testEntry("abc")))

	writer := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { writer.Close() })

	// a write landing between the read and its last-access commit must
	// abort the transaction instead of being silently overwritten
	client.AddHook(&interferingWriteHook{writer: writer, key: "credential:abc"})

	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestGetSurfacesStorageError(t *testing.T) {
	store, mr, _ := newTestStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, types.ErrStorage)
}
