// Package auth provides credential verification and session management.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. The SPA obtains a Google ID token from the Google Identity Services widget
// 2. It POSTs the token to /auth/google
// 3. Server verifies the token (signature, audience, expiry, email_verified),
//    upserts the user in the DB, and issues a session JWT in an HttpOnly cookie
// 4. On subsequent API calls, middleware reads the cookie, verifies the JWT,
//    and sets the userID in the request context
//
// WHY A SESSION JWT?
// The session is stateless — no server-side session table. All the
// information needed (userID, expiry) is inside the signed token, so "logout"
// is just deleting the cookie and revocation before expiry is impossible
// without rotating the secret. That trade-off is deliberate.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/profile-hub/internal/apperror"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// SessionTTL is the fixed session lifetime. Expiry forces a full re-login;
// there is no refresh or rotation mechanism.
const SessionTTL = 7 * 24 * time.Hour

const issuer = "profile-hub"

// SessionService issues and verifies session tokens.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations — compromise of the key invalidates
// the trustworthiness of every outstanding session.
type SessionService struct {
	secret []byte
}

// NewSessionService creates a SessionService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewSessionService(secret string) (*SessionService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &SessionService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// The payload carries nothing but the user id in "sub" (Subject) plus the
// registered timestamps — the session is a capability, not a profile copy.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a session token for the given userID.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key for signing
// and verifying. Fine for a single-server deployment.
func (s *SessionService) Issue(userID string) (string, error) {
	return s.IssueWithDuration(userID, SessionTTL)
}

// IssueWithDuration creates a token with a custom expiry duration.
// Used in tests to produce already-expired tokens.
func (s *SessionService) IssueWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a session token string.
// Returns the userID (stored in the "sub" claim) if the token is valid,
// or an error wrapping apperror.ErrInvalidSession otherwise.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens minted by other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *SessionService) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.InvalidSession("session expired")
		}
		return "", apperror.InvalidSession("invalid session token")
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", apperror.InvalidSession("invalid session claims")
	}

	userID := c.Subject
	if userID == "" {
		return "", apperror.InvalidSession("session has no subject")
	}

	return userID, nil
}

// SetSessionCookie writes the session token as an HttpOnly cookie.
//
// HttpOnly = JavaScript cannot read this cookie (XSS protection).
// SameSite=Lax = cookie is sent on top-level navigations but not cross-site POSTs.
// Secure is on in production (HTTPS only); off for local dev over plain HTTP.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
