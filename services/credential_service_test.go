package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credstorage/go-credential-server/cache"
	"github.com/credstorage/go-credential-server/crypto"
	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/types"
)

func newTestService(t *testing.T) *CredentialService {
	t.Helper()
	global.Conf.Crypto.SymmetricKeySize = 128

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ciphers, err := cache.NewCipherCache(8)
	require.NoError(t, err)

	return NewCredentialService(repository.NewRedisCredentialStore(client), ciphers)
}

func newTestIdentity(t *testing.T) (string, *crypto.EnvelopeDecrypter) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	privateDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)
	decrypter, err := crypto.NewEnvelopeDecrypter(privateDER)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(publicDER), decrypter
}

func TestStoreAndFetchRoundTrip(t *testing.T) {
	service := newTestService(t)
	identity, decrypter := newTestIdentity(t)
	ctx := context.Background()

	_, err := service.Store(ctx, identity, &types.InputCredential{
		Primary:     "user",
		Secondary:   "password",
		Description: "staging database",
	})
	require.NoError(t, err)

	entry, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "staging database", entry.Description)
	assert.NotNil(t, entry.CreatedAt)
	assert.NotNil(t, entry.LastAccess)

	symmetricKey, err := decrypter.DecryptKey(entry.SymmetricKey)
	require.NoError(t, err)
	primary, err := decrypter.DecryptField(symmetricKey, entry.Primary)
	require.NoError(t, err)
	secondary, err := decrypter.DecryptField(symmetricKey, entry.Secondary)
	require.NoError(t, err)

	assert.Equal(t, "user", primary)
	assert.Equal(t, "password", secondary)
}

func TestStoreWithoutSecondary(t *testing.T) {
	service := newTestService(t)
	identity, decrypter := newTestIdentity(t)
	ctx := context.Background()

	_, err := service.Store(ctx, identity, &types.InputCredential{Primary: "another"})
	require.NoError(t, err)

	entry, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	assert.Empty(t, entry.Secondary)

	symmetricKey, err := decrypter.DecryptKey(entry.SymmetricKey)
	require.NoError(t, err)
	secondary, err := decrypter.DecryptField(symmetricKey, entry.Secondary)
	require.NoError(t, err)
	assert.Empty(t, secondary)
}

func TestStoreGeneratesFreshKeysPerWrite(t *testing.T) {
	service := newTestService(t)
	identity, _ := newTestIdentity(t)
	ctx := context.Background()

	incoming := &types.InputCredential{Primary: "user", Secondary: "password"}
	first, err := service.Store(ctx, identity, incoming)
	require.NoError(t, err)
	second, err := service.Store(ctx, identity, incoming)
	require.NoError(t, err)

	assert.NotEqual(t, first.SymmetricKey, second.SymmetricKey)
	assert.NotEqual(t, first.Primary, second.Primary)
	assert.NotEqual(t, first.Secondary, second.Secondary)
}

func TestStoreReplacesAndPreservesCreatedAt(t *testing.T) {
	service := newTestService(t)
	identity, decrypter := newTestIdentity(t)
	ctx := context.Background()

	first, err := service.Store(ctx, identity, &types.InputCredential{Primary: "user", Secondary: "password"})
	require.NoError(t, err)

	second, err := service.Store(ctx, identity, &types.InputCredential{Primary: "another"})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt.String(), second.CreatedAt.String())
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt.Time))

	entry, err := service.Fetch(ctx, identity)
	require.NoError(t, err)
	assert.Empty(t, entry.Secondary)

	symmetricKey, err := decrypter.DecryptKey(entry.SymmetricKey)
	require.NoError(t, err)
	primary, err := decrypter.DecryptField(symmetricKey, entry.Primary)
	require.NoError(t, err)
	assert.Equal(t, "another", primary)
}

func TestUpdateRequiresExistingEntry(t *testing.T) {
	service := newTestService(t)
	identity, _ := newTestIdentity(t)

	_, err := service.Update(context.Background(), identity, &types.InputCredential{Primary: "user"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestValidation(t *testing.T) {
	service := newTestService(t)
	identity, _ := newTestIdentity(t)
	ctx := context.Background()

	_, err := service.Store(ctx, "", &types.InputCredential{Primary: "user"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = service.Store(ctx, identity, &types.InputCredential{Secondary: "password"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = service.Fetch(ctx, " ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestStoreRejectsMalformedPublicKey(t *testing.T) {
	service := newTestService(t)

	_, err := service.Store(context.Background(), "bm90IGEga2V5", &types.InputCredential{Primary: "user"})
	assert.ErrorIs(t, err, types.ErrCrypto)
}

func TestDelete(t *testing.T) {
	service := newTestService(t)
	identity, _ := newTestIdentity(t)
	ctx := context.Background()

	_, err := service.Store(ctx, identity, &types.InputCredential{Primary: "user"})
	require.NoError(t, err)

	deleted, err := service.Delete(ctx, identity)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = service.Fetch(ctx, identity)
	assert.ErrorIs(t, err, types.ErrNotFound)

	deleted, err = service.Delete(ctx, identity)
	require.NoError(t, err)
	assert.False(t, deleted)
}
