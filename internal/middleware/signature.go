package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/utils"
)

// RawBodyKey holds the verified request body in the echo context.
const RawBodyKey = "raw_body"

// MaxCallbackBody bounds the size of a signed callback.
const MaxCallbackBody = 1 << 20

// SlackSignature rejects requests whose v0 signature does not match secret.
// The body is read once, verified, stored under RawBodyKey and restored for
// the handler.
func SlackSignature(secret string, now func() time.Time, logger *zap.Logger) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			body, err := io.ReadAll(io.LimitReader(req.Body, MaxCallbackBody+1))
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
			}
			if len(body) > MaxCallbackBody {
				return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "body too large"})
			}

			err = utils.VerifySignature(secret,
				req.Header.Get(utils.TimestampHeader),
				req.Header.Get(utils.SignatureHeader),
				body, now())
			if err != nil {
				logger.Warn("callback signature rejected",
					zap.String("remote_ip", c.RealIP()),
					zap.Bool("stale", errors.Is(err, utils.ErrStaleSignature)),
					zap.Error(err),
				)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
			}

			c.Set(RawBodyKey, body)
			req.Body = io.NopCloser(bytes.NewReader(body))
			return next(c)
		}
	}
}
