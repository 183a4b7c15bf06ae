package auth

import (
	"context"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "userID", id), ANY package that knows the string
// "userID" can read or shadow your value. A package-private type prevents
// collisions: only this package can create a key of type contextKey.
type contextKey string

const userIDKey contextKey = "userID"

// RequireSession is a middleware that enforces authentication on protected
// routes.
//
// It reads the session JWT from the "session" HttpOnly cookie, verifies it,
// and stores the userID in the request context. If the cookie is missing or
// the token invalid/expired, it returns 401 Unauthorized and stops the chain.
func RequireSession(sessions *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, sessions)
			if err != nil {
				http.Error(w, `{"error":"invalid_session","message":"valid session required"}`, http.StatusUnauthorized)
				return
			}

			// Store userID in context so handlers can read it
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context.
//
// Returns ("", false) if the request carried no valid session.
// Returns (id, true) if the user is authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the session cookie and verifies it.
//
// COOKIE FLOW:
// 1. Set-Cookie: session=<jwt>; HttpOnly; SameSite=Lax (set on login)
// 2. Browser automatically sends Cookie: session=<jwt> on subsequent requests
// 3. We read r.Cookie("session") and verify it
func extractUserID(r *http.Request, sessions *SessionService) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie — the request is simply anonymous
		return "", err
	}

	return sessions.Verify(cookie.Value)
}
