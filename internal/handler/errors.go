package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/service"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/response"
)

// handleError maps an engine error onto the wire envelope. Messages stay
// free of SQL text and internal identifiers.
func handleError(c *gin.Context, err error) {
	code := service.CodeForError(err)

	message := err.Error()
	switch code {
	case domain.CodeInternalError:
		message = "internal error"
	case domain.CodeTransientRetryExhaust:
		message = "temporarily unable to process scan, retry later"
	case domain.CodeReplayRace:
		message = "concurrent scan detected"
	case domain.CodeInvalidReference:
		message = "invalid ticket or event reference"
	}

	response.Error(c, code.HTTPStatus(), code.String(), message)
}

// isClientError reports whether the error should be logged at warn rather
// than error level
func isClientError(err error) bool {
	return domain.IsValidationError(err) ||
		domain.IsNotFoundError(err) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrAlreadyValidated)
}
