package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie binds a browser to the request it just submitted.
const SessionCookie = "bw_request"

var ErrNoSession = errors.New("no request session")

type sessionClaims struct {
	RequestID string `json:"rid"`
	jwt.RegisteredClaims
}

// SessionSigner issues and verifies short-lived request session tokens.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionSigner(secret string, ttl time.Duration, secure bool) *SessionSigner {
	return &SessionSigner{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Sign returns an HS256 token for requestID and its expiry.
func (s *SessionSigner) Sign(requestID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		RequestID: requestID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies a token and returns the request id it carries.
func (s *SessionSigner) Parse(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrNoSession
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.RequestID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.RequestID, nil
}

// Cookie builds the session cookie for requestID.
func (s *SessionSigner) Cookie(requestID string) (*http.Cookie, error) {
	token, exp, err := s.Sign(requestID)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// FromRequest extracts and verifies the session cookie.
func (s *SessionSigner) FromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", ErrNoSession
	}
	return s.Parse(c.Value)
}
