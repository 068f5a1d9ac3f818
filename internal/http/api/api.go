package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// RawJSON is written to the response as-is instead of being encoded.
type RawJSON []byte

type HandlerFuncWithAuth func(ctx *gin.Context, user *model.User) (any, *APIError)
type HandlerFunc func(ctx *gin.Context) (any, *APIError)

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := middleware.GetCurrentUser(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		result, apiErr := h(ctx, user)
		render(ctx, result, apiErr)
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		render(ctx, result, apiErr)
	}
}

func render(ctx *gin.Context, result any, apiErr *APIError) {
	if apiErr != nil {
		ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
		return
	}
	if raw, ok := result.(RawJSON); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", raw)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func BadRequest(msg string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: msg}
}

// FromError maps domain errors onto HTTP errors. Unknown errors are logged and
// hidden behind a generic message.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return &APIError{Code: http.StatusBadRequest, Message: verr.Error()}
	case errors.Is(err, model.ErrNotFound):
		return &APIError{Code: http.StatusNotFound, Message: "not found"}
	case errors.Is(err, model.ErrPermissionDenied):
		return &APIError{Code: http.StatusForbidden, Message: "permission denied"}
	case errors.Is(err, model.ErrConflict):
		return &APIError{Code: http.StatusConflict, Message: err.Error()}
	default:
		log.Error().Err(err).Msg("unhandled error")
		return &APIError{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}
