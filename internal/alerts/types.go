package alerts

import (
	"time"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

// Task type constants
const (
	TaskRequestCreated    = "notify:request_created"
	TaskRequestRedraw     = "notify:request_redraw"
	TaskConfirmationEmail = "email:request_confirmation"
)

// QueueNotifications is the asynq queue all notification tasks go to.
const QueueNotifications = "notifications"

// Operation names used in logs and metrics.
const (
	OpPost    = "post"
	OpUpdate  = "update"
	OpConfirm = "confirm_email"
	OpEnqueue = "enqueue"
)

// TaskPayload is the queued form of a notification.
type TaskPayload struct {
	Request  marketplace.Request       `json:"request"`
	Target   *marketplace.RenderTarget `json:"target,omitempty"`
	QueuedAt time.Time                 `json:"queued_at"`
}

// Message is a Slack message: fallback text plus Block Kit blocks.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is the subset of Block Kit the request card uses.
type Block struct {
	Type     string       `json:"type"`
	BlockID  string       `json:"block_id,omitempty"`
	Text     *TextObject  `json:"text,omitempty"`
	Fields   []TextObject `json:"fields,omitempty"`
	Elements []any        `json:"elements,omitempty"`
}

// TextObject is a plain_text or mrkdwn text.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Button is an interactive or link button.
type Button struct {
	Type     string     `json:"type"`
	Text     TextObject `json:"text"`
	ActionID string     `json:"action_id"`
	Value    string     `json:"value,omitempty"`
	URL      string     `json:"url,omitempty"`
	Style    string     `json:"style,omitempty"`
}

// EmailEnvelope is a plain text email.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
