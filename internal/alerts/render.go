package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
	"github.com/sudo-init-do/brandwacht/internal/pricing"
	"github.com/sudo-init-do/brandwacht/internal/utils"
)

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape makes user input safe inside mrkdwn text.
func escape(s string) string {
	return mrkdwnEscaper.Replace(s)
}

// RenderRequest builds the agent-facing card for r. The buttons offered
// depend on the claim status; the dashboard button is always present.
func RenderRequest(r marketplace.Request, appURL string) Message {
	title := "New fire-watch request"
	if r.Urgent {
		title = ":rotating_light: URGENT fire-watch request"
	}

	summary := fmt.Sprintf("*%s* needs %d %s for %d %s",
		escape(r.Company), r.Headcount, plural(r.Headcount, "guard", "guards"), r.Hours, plural(r.Hours, "hour", "hours"))
	if r.City != "" {
		summary += " in " + escape(r.City)
	}
	if r.When != "" {
		summary += "\n*Start:* " + escape(r.When)
	}
	if r.Message != "" {
		summary += "\n>" + strings.ReplaceAll(escape(r.Message), "\n", "\n>")
	}

	contact := escape(r.ContactName) + " · " + escape(r.Email)
	if r.Phone != "" {
		contact += " · " + escape(r.Phone)
	}

	blocks := []Block{
		{Type: "header", Text: &TextObject{Type: "plain_text", Text: title}},
		{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: summary}},
		{Type: "section", Fields: []TextObject{
			{Type: "mrkdwn", Text: "*Contact*\n" + contact},
			{Type: "mrkdwn", Text: "*Fee*\n" + pricing.FormatEuro(r.FeeAmount)},
			{Type: "mrkdwn", Text: "*Deposit*\n" + pricing.FormatEuro(r.DepositAmount)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Platform fee (%s%%)*\n%s", formatRate(r.PlatformFeeRate), pricing.FormatEuro(r.PlatformFeeAmount))},
		}},
		{Type: "context", Elements: []any{TextObject{Type: "mrkdwn", Text: statusLine(r)}}},
		{Type: "actions", BlockID: "request:" + r.ID, Elements: buttons(r, appURL)},
	}

	return Message{
		Text:   fmt.Sprintf("%s from %s (%s)", title, r.Company, statusText(r.ClaimStatus)),
		Blocks: blocks,
	}
}

func buttons(r marketplace.Request, appURL string) []any {
	var out []any
	switch r.ClaimStatus {
	case marketplace.StatusOpen:
		out = append(out,
			Button{Type: "button", Text: plain("Claim"), ActionID: marketplace.ActionClaim, Value: r.ID, Style: "primary"},
			Button{Type: "button", Text: plain("Start work"), ActionID: marketplace.ActionProgress, Value: r.ID},
		)
	case marketplace.StatusClaimed:
		out = append(out,
			Button{Type: "button", Text: plain("Start work"), ActionID: marketplace.ActionProgress, Value: r.ID, Style: "primary"},
		)
	}
	out = append(out, Button{
		Type:     "button",
		Text:     plain("Open dashboard"),
		ActionID: marketplace.ActionOpenDashboard,
		URL:      utils.DashboardLink(appURL, r.ID, utils.RoleAgent),
	})
	return out
}

func statusLine(r marketplace.Request) string {
	switch r.ClaimStatus {
	case marketplace.StatusClaimed:
		return "Status: *claimed* by " + escape(claimant(r))
	case marketplace.StatusInProgress:
		return "Status: *in progress* with " + escape(claimant(r))
	default:
		return "Status: *open*, waiting for an agent"
	}
}

func statusText(s marketplace.ClaimStatus) string {
	if s == marketplace.StatusInProgress {
		return "in progress"
	}
	return string(s)
}

func claimant(r marketplace.Request) string {
	if r.ClaimedByName != "" {
		return r.ClaimedByName
	}
	if r.ClaimedBy != "" {
		return r.ClaimedBy
	}
	return "unknown"
}

func plain(s string) TextObject {
	return TextObject{Type: "plain_text", Text: s}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// RenderConfirmation builds the customer's receipt for r.
func RenderConfirmation(r marketplace.Request, appURL string) EmailEnvelope {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", r.ContactName)
	fmt.Fprintf(&b, "We received your request for %d %s for %d %s", r.Headcount, plural(r.Headcount, "fire watch", "fire watches"), r.Hours, plural(r.Hours, "hour", "hours"))
	if r.City != "" {
		fmt.Fprintf(&b, " in %s", r.City)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Estimated fee: %s\n", pricing.FormatEuro(r.FeeAmount))
	fmt.Fprintf(&b, "Deposit: %s\n\n", pricing.FormatEuro(r.DepositAmount))
	b.WriteString("An agent will contact you shortly. You can follow your request here:\n")
	b.WriteString(utils.DashboardLink(appURL, r.ID, utils.RoleCustomer))
	b.WriteString("\n")

	return EmailEnvelope{
		To:      r.Email,
		Subject: "We received your fire-watch request",
		Body:    b.String(),
	}
}
