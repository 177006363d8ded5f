package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cookie names used by the console. SessionCookie carries the authenticated
// session reference; ChallengeCookie carries the pending MFA challenge
// reference during login.
const (
	SessionCookie   = "claritel_session"
	ChallengeCookie = "claritel_mfa"
)

var errInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs and verifies the IDs the browser holds. The cookie value
// is an HS256 JWT whose subject is the session or challenge ID, so a
// tampered cookie reads as no session at all. Session data itself never
// leaves the process.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewCookieCodec constructs a codec signing with the given secret. secure
// marks issued cookies Secure and should be set everywhere TLS terminates
// in front of the console.
func NewCookieCodec(secret string, ttl time.Duration, secure bool) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), ttl: ttl, secure: secure}
}

// Issue sets the named cookie to a signed reference for id.
func (c *CookieCodec) Issue(w http.ResponseWriter, name, id string) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(c.ttl),
	})
	return nil
}

// Read extracts and verifies the ID carried by the named cookie.
func (c *CookieCodec) Read(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", errInvalidCookie
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidCookie
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errInvalidCookie
	}
	return claims.Subject, nil
}

// Drop expires the named cookie on the client.
func (c *CookieCodec) Drop(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
