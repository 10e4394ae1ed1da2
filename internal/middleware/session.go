package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionIDKey  = "checkout_session_id"
	sessionIssuer = "airlink-checkout"

	// SessionTokenHeader carries a refreshed token on responses to checkout writes.
	SessionTokenHeader = "Checkout-Token"
)

// ErrInvalidSessionToken is returned for a missing, malformed or expired checkout token.
var ErrInvalidSessionToken = errors.New("invalid checkout token")

// SessionTokens issues and verifies the signed tokens that carry a checkout session ID.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens creates a SessionTokens signing with HS256.
func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for sessionID and its expiry.
func (t *SessionTokens) Issue(sessionID string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies raw and returns the session ID it carries.
func (t *SessionTokens) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSessionToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.Subject, nil
}

// CheckoutSession rejects requests without a valid Bearer checkout token
// and exposes the session ID to handlers. Writes extend the stored flow, so
// their responses carry a fresh token in the Checkout-Token header.
func CheckoutSession(tokens *SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing checkout token"})
			return
		}

		sessionID, err := tokens.Parse(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(sessionIDKey, sessionID)
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			if fresh, _, err := tokens.Issue(sessionID); err == nil {
				c.Header(SessionTokenHeader, fresh)
			}
		}
		c.Next()
	}
}

// SessionID returns the checkout session of the request, or "".
func SessionID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}
