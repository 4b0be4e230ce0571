package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/types"
)

func newTestAuditService(t *testing.T) (*AuditService, repository.CredentialStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := repository.NewRedisCredentialStore(client)
	return NewAuditService(store), store
}

func TestAuditListAndAccessedSince(t *testing.T) {
	service, store := newTestAuditService(t)
	ctx := context.Background()

	for _, identity := range []string{"abc", "xyz"} {
		require.NoError(t, store.Upsert(ctx, &types.Credential{
			Identity:     identity,
			SymmetricKey: "a2V5",
			Primary:      "cHJpbWFyeQ==",
		}))
	}

	identities, err := service.ListIdentities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abc", "xyz"}, identities)

	accessed, err := service.AccessedSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abc", "xyz"}, accessed)

	accessed, err = service.AccessedSince(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, accessed)
}

func TestAuditGetByIdentity(t *testing.T) {
	service, store := newTestAuditService(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &types.Credential{
		Identity:     "abc",
		SymmetricKey: "a2V5",
		Primary:      "cHJpbWFyeQ==",
	}))

	entry, err := service.GetByIdentity(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", entry.Identity)

	_, err = service.GetByIdentity(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
