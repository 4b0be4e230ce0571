package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/credstorage/go-credential-server/cache"
	"github.com/credstorage/go-credential-server/crypto"
	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/types"
	"github.com/credstorage/go-credential-server/util"
)

// CredentialService orchestrates the envelope encryption and the store. It
// never decrypts anything: reads hand back the stored ciphertexts untouched,
// decryption happens at the private-key-holding client.
type CredentialService struct {
	store            repository.CredentialStore
	ciphers          *cache.CipherCache
	symmetricKeySize int
}

func NewCredentialService(store repository.CredentialStore, ciphers *cache.CipherCache) *CredentialService {
	return &CredentialService{
		store:            store,
		ciphers:          ciphers,
		symmetricKeySize: global.Conf.Crypto.SymmetricKeySize,
	}
}

// Fetch returns the stored (still encrypted) credential for identity. The
// store advances last_access as a side effect of the read.
func (s *CredentialService) Fetch(ctx context.Context, identity string) (*types.Credential, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, fmt.Errorf("%w: identity is required", types.ErrInvalidInput)
	}
	return s.store.Get(ctx, identity)
}

// Store creates or fully replaces the credential for identity. A fresh
// symmetric key is generated on every call; created_at of a prior entry is
// preserved, everything else is replaced.
func (s *CredentialService) Store(ctx context.Context, identity string, incoming *types.InputCredential) (*types.Credential, error) {
	prior, err := s.priorEntry(ctx, identity, incoming)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	return s.encryptAndSave(ctx, identity, prior, incoming)
}

// Update replaces the credential for identity and fails with
// types.ErrNotFound when no entry exists yet.
func (s *CredentialService) Update(ctx context.Context, identity string, incoming *types.InputCredential) (*types.Credential, error) {
	prior, err := s.priorEntry(ctx, identity, incoming)
	if err != nil {
		return nil, err
	}
	return s.encryptAndSave(ctx, identity, prior, incoming)
}

// Delete removes the credential for identity. false means nothing was
// stored under it.
func (s *CredentialService) Delete(ctx context.Context, identity string) (bool, error) {
	if strings.TrimSpace(identity) == "" {
		return false, fmt.Errorf("%w: identity is required", types.ErrInvalidInput)
	}
	return s.store.Delete(ctx, identity)
}

func (s *CredentialService) priorEntry(ctx context.Context, identity string, incoming *types.InputCredential) (*types.Credential, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, fmt.Errorf("%w: identity is required", types.ErrInvalidInput)
	}
	if strings.TrimSpace(incoming.Primary) == "" {
		return nil, fmt.Errorf("%w: primary credential is required", types.ErrInvalidInput)
	}
	return s.store.Get(ctx, identity)
}

func (s *CredentialService) encryptAndSave(ctx context.Context, identity string, prior *types.Credential, incoming *types.InputCredential) (*types.Credential, error) {
	cipher, err := s.ciphers.GetOrCreate(identity, func() (*crypto.EnvelopeCipher, error) {
		return crypto.NewEnvelopeCipherFromBase64(identity, s.symmetricKeySize)
	})
	if err != nil {
		// likely a malformed caller-supplied public key, worth operator attention
		global.Logger.Log("CryptoError", "CredentialService.encryptAndSave", "identity", util.ShortIdentity(identity), "error", err.Error())
		return nil, err
	}

	symmetricKey, err := cipher.GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}
	encryptedKey, err := cipher.EncryptKey(symmetricKey)
	if err != nil {
		global.Logger.Log("CryptoError", "CredentialService.encryptAndSave", "identity", util.ShortIdentity(identity), "error", err.Error())
		return nil, err
	}
	encryptedPrimary, err := cipher.EncryptField(symmetricKey, incoming.Primary)
	if err != nil {
		return nil, err
	}
	encryptedSecondary, err := cipher.EncryptField(symmetricKey, incoming.Secondary)
	if err != nil {
		return nil, err
	}

	entry := &types.Credential{
		Identity:     identity,
		SymmetricKey: encryptedKey,
		Primary:      encryptedPrimary,
		Secondary:    encryptedSecondary,
		Description:  incoming.Description,
	}
	if prior != nil {
		entry.CreatedAt = prior.CreatedAt
	}

	if err := s.store.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
