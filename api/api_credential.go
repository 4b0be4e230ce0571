package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/credstorage/go-credential-server/services"
	"github.com/credstorage/go-credential-server/types"
)

// PublicKeyHeader carries the caller's base64 RSA public key, used both as
// the lookup handle and as the encryption target.
const PublicKeyHeader = "X-Auth-RSA"

const requestTimeout = 10 * time.Second

type CredentialApi struct {
	credentialService *services.CredentialService
	validate          *validator.Validate
}

func NewCredentialApi(credentialService *services.CredentialService) *CredentialApi {
	return &CredentialApi{
		credentialService: credentialService,
		validate:          validator.New(),
	}
}

// Get the credential pair stored under the caller's public key
// @Summary Get the credential pair stored under the caller's public key
// @Description Returns the stored entry: the symmetric key encrypted with the caller's public key and the credential fields encrypted with that symmetric key. Decryption happens at the caller.
// @Tags Credential
// @Param X-Auth-RSA header string true "base64 RSA public key"
// @Success 200 {object} types.Credential
// @Failure 400 {object} api.ApiError "missing public key"
// @Failure 404 {object} api.ApiError "no credential stored"
// @Produce json
// @Router /api/v1/credential [get]
func (a *CredentialApi) GetCredential(c *gin.Context) {
	identity := c.GetHeader(PublicKeyHeader)
	if identity == "" {
		ApiErrorf(c, http.StatusBadRequest, "%s header is required", PublicKeyHeader)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	entry, err := a.credentialService.Fetch(ctx, identity)
	if err != nil {
		AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Store a credential pair under the caller's public key
// @Summary Store a credential pair under the caller's public key
// @Description Create-or-replace: any prior entry under the same key is replaced in full, only its created_at survives. A fresh symmetric key is generated for every call.
// @Tags Credential
// @Param X-Auth-RSA header string true "base64 RSA public key"
// @Param credential body types.InputCredential true "plain text credential pair"
// @Success 201
// @Failure 400 {object} api.ApiError "missing public key or primary"
// @Accept json
// @Produce json
// @Router /api/v1/credential [post]
func (a *CredentialApi) StoreCredential(c *gin.Context) {
	identity, incoming, ok := a.bindCredentialInput(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := a.credentialService.Store(ctx, identity, incoming); err != nil {
		AbortWithServiceError(c, err)
		return
	}
	c.Header("Location", "/api/v1/credential")
	c.Status(http.StatusCreated)
}

// Update the credential pair stored under the caller's public key
// @Summary Update the credential pair stored under the caller's public key
// @Description Re-encrypts the pair with a newly generated symmetric key. Fails when no entry exists yet.
// @Tags Credential
// @Param X-Auth-RSA header string true "base64 RSA public key"
// @Param credential body types.InputCredential true "plain text credential pair"
// @Success 200
// @Failure 404 {object} api.ApiError "no credential stored"
// @Accept json
// @Produce json
// @Router /api/v1/credential [put]
func (a *CredentialApi) UpdateCredential(c *gin.Context) {
	identity, incoming, ok := a.bindCredentialInput(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := a.credentialService.Update(ctx, identity, incoming); err != nil {
		AbortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Delete the credential pair stored under the caller's public key
// @Summary Delete the credential pair stored under the caller's public key
// @Tags Credential
// @Param X-Auth-RSA header string true "base64 RSA public key"
// @Success 200
// @Failure 404 {object} api.ApiError "no credential stored"
// @Produce json
// @Router /api/v1/credential [delete]
func (a *CredentialApi) DeleteCredential(c *gin.Context) {
	identity := c.GetHeader(PublicKeyHeader)
	if identity == "" {
		ApiErrorf(c, http.StatusBadRequest, "%s header is required", PublicKeyHeader)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	deleted, err := a.credentialService.Delete(ctx, identity)
	if err != nil {
		AbortWithServiceError(c, err)
		return
	}
	if !deleted {
		ApiErrorf(c, http.StatusNotFound, "credential not found")
		return
	}
	c.Status(http.StatusOK)
}

func (a *CredentialApi) bindCredentialInput(c *gin.Context) (string, *types.InputCredential, bool) {
	identity := c.GetHeader(PublicKeyHeader)
	if identity == "" {
		ApiErrorf(c, http.StatusBadRequest, "%s header is required", PublicKeyHeader)
		return "", nil, false
	}
	var incoming types.InputCredential
	if err := c.ShouldBindJSON(&incoming); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return "", nil, false
	}
	if err := a.validate.Struct(&incoming); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(err.(validator.ValidationErrors)))
		return "", nil, false
	}
	return identity, &incoming, true
}
