package marketplace

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/utils"
)

// LiveFeed streams claim updates for one request to a websocket client.
type LiveFeed interface {
	Serve(c echo.Context, snapshot Request) error
}

// Handler exposes the intake, callback and dashboard endpoints.
type Handler struct {
	intake   *IntakeService
	claims   *ClaimService
	sessions *utils.SessionSigner
	feed     LiveFeed
	appURL   string
	logger   *zap.Logger
}

// NewHandler wires the HTTP layer. feed may be nil, which disables the live view.
func NewHandler(intake *IntakeService, claims *ClaimService, sessions *utils.SessionSigner, feed LiveFeed, appURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		intake:   intake,
		claims:   claims,
		sessions: sessions,
		feed:     feed,
		appURL:   appURL,
		logger:   logger,
	}
}

// fail maps a pipeline error onto its HTTP response.
func (h *Handler) fail(c echo.Context, err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": string(ve.Kind)}
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	case errors.Is(err, ErrUnknownAction), errors.Is(err, ErrActorRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	h.logger.Error("request failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store request"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
