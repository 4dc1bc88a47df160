package responses

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/playarena/chat-sync/internal/domain/chat"
	"github.com/playarena/chat-sync/internal/infrastructure/chatapi"
	"github.com/playarena/chat-sync/internal/utils/platformerrors"
)

// HandleError maps engine and chat service errors to HTTP responses.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	ctx := c.Request.Context()
	platformerrors.WriteHTTPError(c, platformerrors.NewError(ctx, platformerrors.LayerRoute, classify(err), message, err), logger)
}

func classify(err error) platformerrors.ErrorType {
	var apiErr *chatapi.APIError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrEmptyConversationID),
		errors.Is(err, chat.ErrEmptyTargetUser):
		return platformerrors.ErrorTypeValidation
	case errors.Is(err, chat.ErrConversationNotFound):
		return platformerrors.ErrorTypeNotFound
	case errors.Is(err, chat.ErrNoConversationOpen),
		errors.Is(err, chat.ErrSuperseded):
		return platformerrors.ErrorTypeConflict
	case errors.Is(err, chat.ErrNotConnected),
		errors.Is(err, chat.ErrStopped):
		return platformerrors.ErrorTypeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return platformerrors.ErrorTypeTimeout
	case errors.As(err, &apiErr):
		if apiErr.NotFound() {
			return platformerrors.ErrorTypeNotFound
		}
		return platformerrors.ErrorTypeExternal
	}
	if t := platformerrors.GetPlatformError(err); t != nil {
		return t.Type
	}
	return platformerrors.ErrorTypeInternal
}

// HandleNewError writes a typed error that did not come from a lower layer,
// such as a request validation failure.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	platformerrors.WriteHTTPError(c, platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute, errorType, message, nil), logger)
}
