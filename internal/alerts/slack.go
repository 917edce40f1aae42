package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

// maxResponseBody caps how much of a Slack reply is read.
const maxResponseBody = 1 << 20

// SlackClient talks to the Slack Web API with a bot token.
type SlackClient struct {
	token  string
	apiURL string
	http   *http.Client
}

// NewSlackClient builds a client for apiURL (normally https://slack.com/api).
// A nil httpClient gets a client with a 10s timeout.
func NewSlackClient(token, apiURL string, httpClient *http.Client) *SlackClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackClient{token: token, apiURL: strings.TrimRight(apiURL, "/"), http: httpClient}
}

type slackResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	User    *struct {
		Name     string `json:"name"`
		RealName string `json:"real_name"`
		Profile  struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user,omitempty"`
}

type postMessageBody struct {
	Channel string  `json:"channel"`
	TS      string  `json:"ts,omitempty"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

// Post sends msg to channel and returns a reference for later updates.
func (c *SlackClient) Post(ctx context.Context, channel string, msg Message) (marketplace.RenderTarget, error) {
	resp, err := c.call(ctx, http.MethodPost, "chat.postMessage", postMessageBody{
		Channel: channel,
		Text:    msg.Text,
		Blocks:  msg.Blocks,
	})
	if err != nil {
		return marketplace.RenderTarget{}, err
	}
	return marketplace.RenderTarget{Channel: resp.Channel, MessageTS: resp.TS}, nil
}

// Update replaces a previously posted message.
func (c *SlackClient) Update(ctx context.Context, target marketplace.RenderTarget, msg Message) error {
	_, err := c.call(ctx, http.MethodPost, "chat.update", postMessageBody{
		Channel: target.Channel,
		TS:      target.MessageTS,
		Text:    msg.Text,
		Blocks:  msg.Blocks,
	})
	return err
}

// DisplayName resolves a Slack user id to the name people see in the workspace.
func (c *SlackClient) DisplayName(ctx context.Context, userID string) (string, error) {
	resp, err := c.call(ctx, http.MethodGet, "users.info?"+url.Values{"user": {userID}}.Encode(), nil)
	if err != nil {
		return "", err
	}
	if resp.User == nil {
		return "", errors.New("slack users.info: no user in response")
	}
	for _, name := range []string{resp.User.Profile.DisplayName, resp.User.Profile.RealName, resp.User.RealName, resp.User.Name} {
		if name = strings.TrimSpace(name); name != "" {
			return name, nil
		}
	}
	return "", nil
}

// call performs one Web API request. Transport errors, non-2xx statuses,
// undecodable bodies and ok=false all come back as errors.
func (c *SlackClient) call(ctx context.Context, method, path string, body any) (*slackResponse, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+"/"+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("slack %s: read body: %w", apiMethod(path), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > 0 {
			return nil, fmt.Errorf("slack %s failed: status=%d body=%s", apiMethod(path), resp.StatusCode, raw)
		}
		return nil, fmt.Errorf("slack %s failed: status=%d", apiMethod(path), resp.StatusCode)
	}

	var out slackResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("slack %s: malformed response: %w", apiMethod(path), err)
	}
	if !out.OK {
		if out.Error == "" {
			out.Error = "unknown_error"
		}
		return nil, fmt.Errorf("slack %s: %s", apiMethod(path), out.Error)
	}
	return &out, nil
}

func apiMethod(path string) string {
	m, _, _ := strings.Cut(path, "?")
	return m
}
