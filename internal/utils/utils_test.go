package utils

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardLink(t *testing.T) {
	assert.Equal(t,
		"https://brandwacht.example/dashboard/requests/3f0c?role=agent",
		DashboardLink("https://brandwacht.example/", "3f0c", RoleAgent))
	assert.Equal(t,
		"http://localhost:3000/dashboard/requests/a%2Fb?role=customer",
		DashboardLink("http://localhost:3000", "a/b", RoleCustomer))
	assert.Equal(t,
		"http://localhost:3000/dashboard/requests/x",
		DashboardLink("http://localhost:3000", "x", ""))
}

func TestSessionSigner_RoundTrip(t *testing.T) {
	s := NewSessionSigner("secret", 30*time.Minute, true)

	token, exp, err := s.Sign("req-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	id, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)
}

func TestSessionSigner_RejectsExpiredAndForeign(t *testing.T) {
	s := NewSessionSigner("secret", time.Minute, false)
	token, _, err := s.Sign("req-1")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Parse(token)
	assert.Error(t, err, "expired token")

	other := NewSessionSigner("other-secret", time.Minute, false)
	_, err = other.Parse(token)
	assert.Error(t, err, "token signed with another secret")

	_, err = other.Parse("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionSigner_Cookie(t *testing.T) {
	s := NewSessionSigner("secret", 30*time.Minute, true)
	c, err := s.Cookie("req-9")
	require.NoError(t, err)

	assert.Equal(t, SessionCookie, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 1800, c.MaxAge)

	r := httptest.NewRequest("GET", "/intake/current", nil)
	r.AddCookie(c)
	id, err := s.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "req-9", id)

	_, err = s.FromRequest(httptest.NewRequest("GET", "/intake/current", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte(`payload=%7B%22type%22%3A%22block_actions%22%7D`)
	sig := Sign("shh", ts, body)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, VerifySignature("shh", ts, sig, body, now))
	})

	t.Run("single byte flipped", func(t *testing.T) {
		b := []byte(sig)
		last := len(b) - 1
		if b[last] == '0' {
			b[last] = '1'
		} else {
			b[last] = '0'
		}
		assert.ErrorIs(t, VerifySignature("shh", ts, string(b), body, now), ErrBadSignature)
	})

	t.Run("body tampered", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature("shh", ts, sig, append(body, 'x'), now), ErrBadSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature("other", ts, sig, body, now), ErrBadSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature("shh", ts, sig, body, now.Add(6*time.Minute)), ErrStaleSignature)
	})

	t.Run("missing headers", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature("shh", "", sig, body, now), ErrMissingSignature)
		assert.ErrorIs(t, VerifySignature("shh", ts, "", body, now), ErrMissingSignature)
		assert.ErrorIs(t, VerifySignature("", ts, sig, body, now), ErrMissingSignature)
	})
}
