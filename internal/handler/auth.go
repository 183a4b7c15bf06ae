package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/profile-hub/internal/apperror"
	"github.com/sakif/profile-hub/internal/auth"
	"github.com/sakif/profile-hub/internal/service"
)

// AuthHandler manages the Google sign-in flow and session lifecycle.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGoogleLogin → verify the posted ID token, upsert the user,
//     set the session cookie, return the normalized user
//   - HandleLogout      → clear the session cookie
//
// The handler owns the HTTP concerns (decoding, cookies, status codes);
// everything else is delegated to the profile service.
type AuthHandler struct {
	profiles      *service.ProfileService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies should be true in
// production so the session cookie is HTTPS-only.
func NewAuthHandler(profiles *service.ProfileService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		profiles:      profiles,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// loginRequest is the POST /auth/google body. The accessToken is optional —
// when present it enables the People API contact prefill.
type loginRequest struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

// userResponse wraps the user record the way the frontend expects it.
type userResponse struct {
	User any `json:"user"`
}

// HandleGoogleLogin completes a Google sign-in.
//
// HTTP: POST /auth/google
//
// FLOW:
//  1. Decode {idToken, accessToken?} — 400 if idToken is missing
//  2. ProfileService.Login: verify → upsert → enrich → issue session
//     (invalid or unverified tokens come back as 401)
//  3. Set the HttpOnly session cookie and return 200 {user}
//
// A user record without an id after persistence means the store is broken in
// a way the client can't fix — that's a 500, not a 4xx.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.IDToken == "" {
		writeError(w, apperror.ValidationFailed("idToken", "idToken is required"))
		return
	}

	result, err := h.profiles.Login(r.Context(), req.IDToken, req.AccessToken)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredential) || errors.Is(err, apperror.ErrUnverifiedEmail) {
			h.logger.Warn("login rejected", slog.String("error", err.Error()))
		} else {
			h.logger.Error("login failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	if result.User.ID == "" {
		h.logger.Error("login produced a user without an id",
			slog.String("email", result.User.Email),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "user id missing after persistence",
		})
		return
	}

	auth.SetSessionCookie(w, result.Token, h.secureCookies)
	writeJSON(w, http.StatusOK, userResponse{User: result.User})
}

// HandleLogout clears the session cookie, effectively logging the user out.
//
// HTTP: POST /auth/logout
//
// Since sessions are stateless, "logout" just means deleting the client-side
// cookie. The token remains technically valid until it expires, but without
// the cookie the browser can't send it. No auth required: logging out an
// already-anonymous client is a harmless no-op.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
