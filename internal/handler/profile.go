package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/profile-hub/internal/apperror"
	"github.com/sakif/profile-hub/internal/auth"
	"github.com/sakif/profile-hub/internal/model"
	"github.com/sakif/profile-hub/internal/service"
)

// ProfileHandler serves the authenticated profile routes plus the schema
// debug endpoint.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleMe returns the currently authenticated user's record.
//
// HTTP: GET /me
// Auth: Required (RequireSession middleware sets userID in context)
//
// A session whose user has vanished from the DB yields 401, not 404: from
// the client's point of view the session is simply no longer good, and the
// right reaction is a fresh login.
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireSession-protected route, but be safe.
		writeError(w, apperror.InvalidSession("valid session required"))
		return
	}

	user, err := h.profiles.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			h.logger.Warn("session references a missing user", slog.String("userID", userID))
			writeError(w, apperror.InvalidSession("session user no longer exists"))
			return
		}
		h.logger.Error("fetching current user failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleUpdateProfile applies a sparse profile edit.
//
// HTTP: POST /profile
// Auth: Required
//
// The body is a partial set of editable fields; absent keys and explicit
// nulls both leave the stored value alone, and fields whose columns don't
// exist in the active schema are silently dropped. An empty body is a valid
// no-op that returns the current record. Persistence failures surface as
// 400 on this route — the edit was refused, the session is fine.
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidSession("valid session required"))
		return
	}

	// An entirely empty body decodes to io.EOF; the contract treats that as
	// an empty edit, not an error.
	var fields model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), userID, fields)
	if err != nil {
		h.logger.Error("profile update failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		// Endpoint contract: persistence failures are 400 here.
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "update_failed",
			Message: "could not update profile",
		})
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleDebugSchema reports which columns the user relation currently has.
//
// HTTP: GET /debug/schema
//
// Operational aid for partially migrated environments: when a field "won't
// stick", this shows whether its column exists at all.
func (h *ProfileHandler) HandleDebugSchema(w http.ResponseWriter, r *http.Request) {
	cols, err := h.profiles.SchemaColumns(r.Context())
	if err != nil {
		h.logger.Error("schema introspection failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "schema introspection failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"columns": cols})
}
