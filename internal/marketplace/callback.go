package marketplace

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// ActionOpenDashboard is the link button on the chat card. Chat platforms
// still report its clicks, which need no state change.
const ActionOpenDashboard = "open_dashboard"

var errMalformedCallback = errors.New("malformed callback payload")

// interaction is the subset of a Slack block_actions payload we read.
type interaction struct {
	Type string `json:"type"`
	User struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Container struct {
		ChannelID string `json:"channel_id"`
		MessageTS string `json:"message_ts"`
	} `json:"container"`
	Message struct {
		TS string `json:"ts"`
	} `json:"message"`
}

func (p interaction) actor() Actor {
	name := p.User.Name
	if name == "" {
		name = p.User.Username
	}
	return Actor{ID: p.User.ID, Name: name}
}

// target is where the card that was clicked lives, nil when unknown.
func (p interaction) target() *RenderTarget {
	t := &RenderTarget{Channel: p.Container.ChannelID, MessageTS: p.Container.MessageTS}
	if t.Channel == "" {
		t.Channel = p.Channel.ID
	}
	if t.MessageTS == "" {
		t.MessageTS = p.Message.TS
	}
	if !t.Valid() {
		return nil
	}
	return t
}

// parseInteraction accepts the form-encoded payload= wrapper or bare JSON.
func parseInteraction(contentType string, body []byte) (interaction, error) {
	var p interaction
	data := body
	if strings.HasPrefix(contentType, echo.MIMEApplicationForm) {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return p, errMalformedCallback
		}
		data = []byte(form.Get("payload"))
	}
	if len(data) == 0 {
		return p, errMalformedCallback
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, errMalformedCallback
	}
	if len(p.Actions) == 0 {
		return p, errMalformedCallback
	}
	return p, nil
}

// ClaimCallback handles POST /claim-callback. The signature is verified by
// middleware before this runs.
func (h *Handler) ClaimCallback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errMalformedCallback.Error()})
	}
	p, err := parseInteraction(c.Request().Header.Get(echo.HeaderContentType), body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	action := p.Actions[0]
	if action.ActionID == ActionOpenDashboard {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}
	id := strings.TrimSpace(action.Value)
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id"})
	}

	updated, err := h.claims.Apply(c.Request().Context(), action.ActionID, id, p.actor(), p.target())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":              true,
		"id":              updated.ID,
		"claim_status":    updated.ClaimStatus,
		"claimed_by_name": updated.ClaimedByName,
	})
}
