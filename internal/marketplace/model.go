package marketplace

import (
	"strings"
	"time"
)

// ClaimStatus is the lifecycle state of a request as seen by staffing agents.
type ClaimStatus string

const (
	StatusOpen       ClaimStatus = "open"
	StatusClaimed    ClaimStatus = "claimed"
	StatusInProgress ClaimStatus = "in_progress"
)

// Valid reports whether s is one of the stored claim states.
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClaimed, StatusInProgress:
		return true
	}
	return false
}

// Intake channel tags. Unknown tags are stored as SourceOther so the set
// stays bounded.
const (
	DefaultSource    = "website"
	SourceCalculator = "calculator"
	SourceLanding    = "landing"
	SourcePhone      = "phone"
	SourcePartner    = "partner"
	SourceOther      = "other"
)

var knownSources = map[string]bool{
	DefaultSource:    true,
	SourceCalculator: true,
	SourceLanding:    true,
	SourcePhone:      true,
	SourcePartner:    true,
	SourceOther:      true,
}

// NormalizeSource maps a client-supplied tag onto the known channels. Empty
// means the website forms.
func NormalizeSource(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return DefaultSource
	case knownSources[s]:
		return s
	}
	return SourceOther
}

// Request is a fire-watch staffing request as stored.
type Request struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	City        string `json:"city,omitempty"`
	When        string `json:"requested_start,omitempty"`
	Message     string `json:"message,omitempty"`
	Urgent      bool   `json:"urgent"`

	// Quote, fixed at intake.
	Headcount         int     `json:"headcount"`
	Hours             int     `json:"hours"`
	HourlyRate        float64 `json:"hourly_rate"`
	FeeAmount         int64   `json:"fee_amount"`
	DepositAmount     int64   `json:"deposit_amount"`
	PlatformFeeRate   float64 `json:"platform_fee_rate"`
	PlatformFeeAmount int64   `json:"platform_fee_amount"`

	ClaimStatus   ClaimStatus `json:"claim_status"`
	ClaimedBy     string      `json:"claimed_by,omitempty"`
	ClaimedByName string      `json:"claimed_by_name,omitempty"`
	ClaimedAt     *time.Time  `json:"claimed_at,omitempty"`

	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRequest is what the intake pipeline hands to the repository.
type NewRequest struct {
	Intake
	HourlyRate        float64
	FeeAmount         int64
	DepositAmount     int64
	PlatformFeeRate   float64
	PlatformFeeAmount int64
}

// ClaimPatch describes a claim-state update. Nil fields keep their stored value.
type ClaimPatch struct {
	Status        ClaimStatus
	ClaimedBy     *string
	ClaimedByName *string
	ClaimedAt     *time.Time
}

// Actor is whoever pressed a button in the chat notification.
type Actor struct {
	ID string
	// Name is the display name the callback carried, used when lookup fails.
	Name string
}

// RenderTarget points at a previously posted chat message.
type RenderTarget struct {
	Channel   string `json:"channel"`
	MessageTS string `json:"ts"`
}

// Valid reports whether the target can be redrawn.
func (t *RenderTarget) Valid() bool {
	return t != nil && t.Channel != "" && t.MessageTS != ""
}
