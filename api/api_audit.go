package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/credstorage/go-credential-server/services"
	"github.com/credstorage/go-credential-server/types"
)

// AuditApi exposes the administrative views: identity listing, the
// access-time window query and a fetch that includes the identity handle.
type AuditApi struct {
	auditService *services.AuditService
}

func NewAuditApi(auditService *services.AuditService) *AuditApi {
	return &AuditApi{auditService: auditService}
}

// List every stored identity
// @Summary List every stored identity
// @Tags Audit
// @Success 200 {array} string
// @Produce json
// @Router /api/v1/audit/list [get]
func (a *AuditApi) ListIdentities(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	identities, err := a.auditService.ListIdentities(ctx)
	if err != nil {
		AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, identities)
}

// List identities accessed since a unix timestamp
// @Summary List identities accessed since a unix timestamp
// @Tags Audit
// @Param timestamp query int true "unix timestamp (seconds)"
// @Success 200 {object} types.OutputAccessedSince
// @Failure 400 {object} api.ApiError "missing or invalid timestamp"
// @Produce json
// @Router /api/v1/audit/last_accessed [get]
func (a *AuditApi) LastAccessedSince(c *gin.Context) {
	raw := c.Query("timestamp")
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		ApiErrorf(c, http.StatusBadRequest, "timestamp query parameter is required")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	identities, sErr := a.auditService.AccessedSince(ctx, time.Unix(since, 0))
	if sErr != nil {
		AbortWithServiceError(c, sErr)
		return
	}
	c.JSON(http.StatusOK, types.OutputAccessedSince{Identities: identities})
}

// Get a credential in the admin view, identity included
// @Summary Get a credential in the admin view, identity included
// @Tags Audit
// @Param X-Auth-RSA header string true "base64 RSA public key"
// @Success 200 {object} types.OutputAuditCredential
// @Failure 404 {object} api.ApiError "no credential stored"
// @Produce json
// @Router /api/v1/audit [get]
func (a *AuditApi) GetCredential(c *gin.Context) {
	identity := c.GetHeader(PublicKeyHeader)
	if identity == "" {
		ApiErrorf(c, http.StatusBadRequest, "%s header is required", PublicKeyHeader)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	entry, err := a.auditService.GetByIdentity(ctx, identity)
	if err != nil {
		AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.OutputAuditCredential{Identity: entry.Identity, Credential: *entry})
}
