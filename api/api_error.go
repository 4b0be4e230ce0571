package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/credstorage/go-credential-server/metrics"
	"github.com/credstorage/go-credential-server/types"
)

type ApiError struct {
	// Code is the HTTP status code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
}

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// AbortWithServiceError maps the service error taxonomy to transport status
// codes. Crypto failures map to 400: they mean the caller-supplied public
// key (or payload) is unusable and a retry would fail identically.
func AbortWithServiceError(c *gin.Context, err error) ApiError {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return ApiErrorf(c, http.StatusBadRequest, "%s", err.Error())
	case errors.Is(err, types.ErrNotFound):
		return ApiErrorf(c, http.StatusNotFound, "credential not found")
	case errors.Is(err, types.ErrCrypto), errors.Is(err, types.ErrKeyGeneration):
		return ApiErrorf(c, http.StatusBadRequest, "unable to encrypt with the supplied public key")
	case errors.Is(err, types.ErrConflict):
		metrics.ReadConflictMetricsTotal.Inc()
		return ApiErrorf(c, http.StatusConflict, "concurrent modification, please retry")
	default:
		return ApiErrorf(c, http.StatusInternalServerError, "storage failure")
	}
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}
