package utils

import (
	"net/url"
	"strings"
)

// Dashboard role hints.
const (
	RoleAgent    = "agent"
	RoleCustomer = "customer"
)

// DashboardLink builds the deep link to a request's dashboard view. The id is
// opaque and only path-escaped.
func DashboardLink(baseURL, requestID, role string) string {
	base := strings.TrimRight(baseURL, "/")
	link := base + "/dashboard/requests/" + url.PathEscape(requestID)
	if role == "" {
		return link
	}
	return link + "?" + url.Values{"role": {role}}.Encode()
}
