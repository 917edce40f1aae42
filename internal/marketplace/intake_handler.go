package marketplace

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/utils"
)

// SubmitIntake handles POST /intake with a JSON or form-encoded body.
func (h *Handler) SubmitIntake(c echo.Context) error {
	raw := readPayload(c)

	req, err := h.intake.Submit(c.Request().Context(), raw)
	if err != nil {
		return h.fail(c, err)
	}

	cookie, err := h.sessions.Cookie(req.ID)
	if err != nil {
		h.logger.Warn("session cookie not issued", zap.String("request_id", req.ID), zap.Error(err))
	} else {
		c.SetCookie(cookie)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":            req.ID,
		"dashboard_url": utils.DashboardLink(h.appURL, req.ID, utils.RoleCustomer),
	})
}

// CurrentIntake handles GET /intake/current: the request bound to the
// browser's session cookie.
func (h *Handler) CurrentIntake(c echo.Context) error {
	id, err := h.sessions.FromRequest(c.Request())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no active request"})
	}

	req, err := h.intake.Lookup(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":              req.ID,
		"claim_status":    req.ClaimStatus,
		"claimed_by_name": req.ClaimedByName,
		"dashboard_url":   utils.DashboardLink(h.appURL, req.ID, utils.RoleCustomer),
	})
}

// readPayload decodes the body into an untyped map. Anything undecodable
// yields an empty map so validation reports the missing fields.
func readPayload(c echo.Context) map[string]any {
	raw := map[string]any{}
	ctype := c.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(ctype, echo.MIMEApplicationForm) || strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		form, err := c.FormParams()
		if err != nil {
			return raw
		}
		for k, v := range form {
			if len(v) > 0 {
				raw[k] = v[0]
			}
		}
		return raw
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return raw
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return map[string]any{}
	}
	return raw
}
