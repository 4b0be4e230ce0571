package services

import (
	"context"
	"time"

	"github.com/credstorage/go-credential-server/global"
	"github.com/credstorage/go-credential-server/repository"
	"github.com/credstorage/go-credential-server/types"
)

// AuditService serves the administrative views over the store: identity
// enumeration and the access-time index.
type AuditService struct {
	store repository.CredentialStore
}

func NewAuditService(store repository.CredentialStore) *AuditService {
	return &AuditService{store: store}
}

func (s *AuditService) ListIdentities(ctx context.Context) ([]string, error) {
	return s.store.ListIdentities(ctx)
}

// AccessedSince returns identities whose last access falls between the given
// timestamp and now.
func (s *AuditService) AccessedSince(ctx context.Context, since time.Time) ([]string, error) {
	return s.store.AccessedBetween(ctx, since, time.Now())
}

// GetByIdentity is the admin fetch; same read side effect as the public one.
func (s *AuditService) GetByIdentity(ctx context.Context, identity string) (*types.Credential, error) {
	return s.store.Get(ctx, identity)
}

// LogAccessSummary logs how many credentials were touched in the last 24
// hours, scheduled via cron for inactivity reporting.
func (s *AuditService) LogAccessSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accessed, err := s.AccessedSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		global.Logger.Log("StorageError", "AuditService.LogAccessSummary", "error", err.Error())
		return
	}
	total, err := s.ListIdentities(ctx)
	if err != nil {
		global.Logger.Log("StorageError", "AuditService.LogAccessSummary", "error", err.Error())
		return
	}
	global.Logger.Log("Info", "AuditService.LogAccessSummary", "accessed24h", len(accessed), "stored", len(total))
}
