// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tillpoint/accounts/internal/config"
)

// ErrInvalidCookie is returned when the session cookie fails signature or
// claim validation.
var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs session ids into the browser cookie and verifies them on
// the way back. The cookie value is an HS256 JWT whose subject is the session
// id, so a forged or altered cookie is rejected without touching the store.
type CookieCodec struct {
	name    string
	signKey string
	issuer  string
	ttl     time.Duration
	now     func() time.Time
}

// NewCookieCodec builds a codec from the session config.
func NewCookieCodec(cfg config.Session) *CookieCodec {
	return &CookieCodec{
		name:    cfg.CookieName,
		signKey: cfg.SignKey,
		issuer:  cfg.Issuer,
		ttl:     cfg.TTL,
		now:     time.Now,
	}
}

// Encode wraps sid into a signed token suitable for a cookie value.
func (c *CookieCodec) Encode(sid string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   sid,
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	signedToken, err := token.SignedString([]byte(c.signKey))
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signedToken, nil
}

// Decode verifies a cookie value and returns the session id it carries.
func (c *CookieCodec) Decode(value string) (string, error) {
	parsedToken, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(c.signKey), nil
		},
		jwt.WithIssuer(c.issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}

	sid, err := parsedToken.Claims.GetSubject()
	if err != nil || sid == "" {
		return "", ErrInvalidCookie
	}
	return sid, nil
}

// Write sets the session cookie for sid on the response.
func (c *CookieCodec) Write(w http.ResponseWriter, sid string) error {
	value, err := c.Encode(sid)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie on the response.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts and verifies the session id from the request cookie.
// Returns ErrInvalidCookie when the cookie is absent or fails validation.
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return "", ErrInvalidCookie
	}
	return c.Decode(cookie.Value)
}
