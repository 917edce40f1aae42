package marketplace

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/utils"
)

type testEnv struct {
	e        *echo.Echo
	repo     *memRepo
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemRepo()
	n := &recordingNotifier{}
	intake := NewIntakeService(repo, n, Rates{HourlyRate: 50, PlatformFeeRate: 15}, nil, zap.NewNop())
	claims := newClaims(repo, n)
	sessions := utils.NewSessionSigner("test-secret", 30*time.Minute, false)
	h := NewHandler(intake, claims, sessions, nil, "https://bw.example", zap.NewNop())

	e := echo.New()
	e.POST("/intake", h.SubmitIntake)
	e.GET("/intake/current", h.CurrentIntake)
	e.POST("/claim-callback", h.ClaimCallback)
	e.GET("/calculator", h.Calculator)
	e.GET("/dashboard/requests/:id", h.Dashboard)
	e.GET("/dashboard/requests/:id/live", h.DashboardLive)
	return &testEnv{e: e, repo: repo, notifier: n}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestSubmitIntake_JSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/intake",
		`{"company":"Acme","contact":"Jo","email":"jo@acme.nl","people":2,"hours_estimate":4}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "https://bw.example/dashboard/requests/"+id+"?role=customer", body["dashboard_url"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, utils.SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	stored, err := env.repo.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), stored.FeeAmount)
	assert.Equal(t, StatusOpen, stored.ClaimStatus)
}

func TestSubmitIntake_Form(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"company": {"Acme"}, "contact": {"Jo"}, "email": {"jo@acme.nl"}, "people": {"30"}, "urgent": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/intake", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := env.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	stored, err := env.repo.Get(t.Context(), decode(t, rec)["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, MaxHeadcount, stored.Headcount)
	assert.Equal(t, MinHours, stored.Hours)
	assert.True(t, stored.Urgent)
}

func TestSubmitIntake_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		err    string
		fields []any
	}{
		{"missing company", `{"company":"","contact":"Jan","email":"jan@x.nl"}`, http.StatusBadRequest, "missing_required", []any{"company"}},
		{"bad email", `{"company":"Acme","contact":"Jan","email":"not-an-email"}`, http.StatusBadRequest, "invalid_email", []any{"email"}},
		{"honeypot", `{"company":"Acme","contact":"Jan","email":"jan@x.nl","website":"x"}`, http.StatusBadRequest, "spam", nil},
		{"undecodable body", `{"company":`, http.StatusBadRequest, "missing_required", []any{"company", "contact", "email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(jsonRequest(http.MethodPost, "/intake", tt.body))
			assert.Equal(t, tt.status, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, tt.err, body["error"])
			if tt.fields == nil {
				assert.NotContains(t, body, "fields")
			} else {
				assert.Equal(t, tt.fields, body["fields"])
			}
			assert.Empty(t, env.repo.rows)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestSubmitIntake_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.err = assert.AnError

	rec := env.do(jsonRequest(http.MethodPost, "/intake", `{"company":"Acme","contact":"Jo","email":"jo@acme.nl"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to store request", decode(t, rec)["error"])
}

func TestCurrentIntake(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/intake/current", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	created := env.do(jsonRequest(http.MethodPost, "/intake", `{"company":"Acme","contact":"Jo","email":"jo@acme.nl"}`))
	require.Equal(t, http.StatusCreated, created.Code)

	req := httptest.NewRequest(http.MethodGet, "/intake/current", nil)
	for _, c := range created.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, decode(t, created)["id"], body["id"])
	assert.Equal(t, "open", body["claim_status"])

	forged := httptest.NewRequest(http.MethodGet, "/intake/current", nil)
	forged.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, env.do(forged).Code)
}

func callbackForm(actionID, value, userID, userName string) string {
	payload := map[string]any{
		"type":      "block_actions",
		"user":      map[string]any{"id": userID, "name": userName},
		"actions":   []any{map[string]any{"action_id": actionID, "value": value}},
		"container": map[string]any{"channel_id": "C1", "message_ts": "1700000000.000100"},
	}
	b, _ := json.Marshal(payload)
	return url.Values{"payload": {string(b)}}.Encode()
}

func postCallback(env *testEnv, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/claim-callback", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return env.do(req)
}

func TestClaimCallback_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	created := env.do(jsonRequest(http.MethodPost, "/intake", `{"company":"Acme","contact":"Jo","email":"jo@acme.nl"}`))
	require.Equal(t, http.StatusCreated, created.Code)
	id := decode(t, created)["id"].(string)

	rec := postCallback(env, callbackForm(ActionClaim, id, "UA", "agent.a"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "claimed", body["claim_status"])
	assert.Equal(t, "Agent A", body["claimed_by_name"])

	rec = postCallback(env, callbackForm(ActionProgress, id, "UB", "agent.b"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	row, err := env.repo.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, row.ClaimStatus)
	assert.Equal(t, "UA", row.ClaimedBy, "an existing claimant is kept")

	var redraws []call
	for _, c := range env.notifier.snapshot() {
		if c.op == "redraw" {
			redraws = append(redraws, c)
		}
	}
	require.Len(t, redraws, 2)
	assert.Equal(t, RenderTarget{Channel: "C1", MessageTS: "1700000000.000100"}, redraws[0].target)
}

func TestClaimCallback_RawJSON(t *testing.T) {
	env := newTestEnv(t)
	row, err := env.repo.Create(t.Context(), NewRequest{Intake: Intake{Company: "Acme", ContactName: "Jo", Email: "jo@acme.nl"}})
	require.NoError(t, err)

	body := `{"user":{"id":"UB","username":"agent.b"},"actions":[{"action_id":"set_status_progress","value":"` + row.ID + `"}],"channel":{"id":"C2"},"message":{"ts":"2.2"}}`
	rec := env.do(jsonRequest(http.MethodPost, "/claim-callback", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "in_progress", decode(t, rec)["claim_status"])

	calls := env.notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, RenderTarget{Channel: "C2", MessageTS: "2.2"}, calls[0].target)
}

func TestClaimCallback_Errors(t *testing.T) {
	env := newTestEnv(t)
	row, err := env.repo.Create(t.Context(), NewRequest{Intake: Intake{Company: "Acme", ContactName: "Jo", Email: "jo@acme.nl"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		form   string
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"not json", url.Values{"payload": {"{"}}.Encode(), http.StatusBadRequest},
		{"no actions", url.Values{"payload": {`{"user":{"id":"UA"}}`}}.Encode(), http.StatusBadRequest},
		{"unknown action", callbackForm("delete_request", row.ID, "UA", "a"), http.StatusBadRequest},
		{"missing value", callbackForm(ActionClaim, "", "UA", "a"), http.StatusBadRequest},
		{"missing user", callbackForm(ActionClaim, row.ID, "", ""), http.StatusBadRequest},
		{"unknown request", callbackForm(ActionClaim, "3b241101-e2bb-4255-8caf-4136c566a962", "UA", "a"), http.StatusNotFound},
		{"dashboard link click", callbackForm(ActionOpenDashboard, "", "UA", "a"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, postCallback(env, tt.form).Code)
		})
	}

	got, err := env.repo.Get(t.Context(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, got.ClaimStatus, "failed callbacks change nothing")

	env.repo.err = assert.AnError
	rec := postCallback(env, callbackForm(ActionClaim, row.ID, "UA", "a"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCalculator(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/calculator?people=2&hours=4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 40000.0, body["fee_amount"])
	assert.Equal(t, 20000.0, body["deposit_amount"])
	assert.Equal(t, 6000.0, body["platform_fee_amount"])
	assert.Equal(t, "€400.00", body["fee_display"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/calculator?people=abc&hours=99", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, 1.0, body["people"])
	assert.Equal(t, 24.0, body["hours"])
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	row, err := env.repo.Create(t.Context(), NewRequest{Intake: Intake{Company: "Acme", ContactName: "Jo", Email: "jo@acme.nl"}})
	require.NoError(t, err)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/requests/"+row.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "agent", body["role"])
	assert.Equal(t, row.ID, body["request"].(map[string]any)["id"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/dashboard/requests/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/dashboard/requests/"+row.ID+"/live", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "live view is off without a feed")
}
