// Package service — profile and login business logic.
//
// ProfileService is the business logic layer between the HTTP handlers and
// the repository/auth utilities:
//
//	AuthHandler / ProfileHandler (HTTP) → ProfileService (rules) → UserRepository (DB)
//	                                    ↘ CredentialVerifier (Google)
//	                                    ↘ SessionService (JWT)
//	                                    ↘ ContactSource (People API, best-effort)
//
// KEY RESPONSIBILITIES:
//   - Orchestrate login: verify the ID token, upsert the user, optionally
//     prefill contact data, issue a session token
//   - Enforce the unverified-email policy before anything touches the DB
//   - Keep all of the above away from HTTP concerns and easily testable
//     with fake dependencies
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/profile-hub/internal/apperror"
	"github.com/sakif/profile-hub/internal/auth"
	"github.com/sakif/profile-hub/internal/model"
	"github.com/sakif/profile-hub/internal/people"
	"github.com/sakif/profile-hub/internal/repository"
)

// ProfileService handles login orchestration and profile reads/writes.
type ProfileService struct {
	users    repository.UserRepository
	verifier auth.CredentialVerifier
	sessions *auth.SessionService
	contacts people.ContactSource // may be nil: enrichment disabled
	logger   *slog.Logger
}

// NewProfileService creates a ProfileService with all required dependencies.
// contacts may be nil, in which case the enrichment step is skipped entirely.
func NewProfileService(
	users repository.UserRepository,
	verifier auth.CredentialVerifier,
	sessions *auth.SessionService,
	contacts people.ContactSource,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		users:    users,
		verifier: verifier,
		sessions: sessions,
		contacts: contacts,
		logger:   logger,
	}
}

// LoginResult bundles the user record and the issued session token so the
// handler can set the cookie and respond in one step.
type LoginResult struct {
	User  *model.User
	Token string
}

// Login handles a Google sign-in.
//
// FLOW:
//  1. Verify the ID token (signature, audience, expiry, issuer)
//  2. Refuse unverified emails — policy: equivalent to a failed verification,
//     and nothing is written to the DB
//  3. Upsert the user by email, deriving a default username for back-fill
//  4. If the client also sent an OAuth access token, prefill blank contact
//     fields from the People API — best-effort, never overwrites data, and
//     a failure is logged and swallowed
//  5. Issue the session token
func (s *ProfileService) Login(ctx context.Context, idToken, accessToken string) (*LoginResult, error) {
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("service/profile: verifying credential: %w", err)
	}

	if !claims.EmailVerified {
		return nil, fmt.Errorf("service/profile: %w", apperror.UnverifiedEmail(claims.Email))
	}

	identity := model.Identity{
		Email:           claims.Email,
		Name:            claims.Name,
		Picture:         claims.Picture,
		GoogleSub:       claims.Subject,
		DefaultUsername: deriveUsername(claims.Name, claims.Email),
	}

	user, err := s.users.UpsertFromIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("service/profile: upserting user (email=%s): %w", claims.Email, err)
	}

	if accessToken != "" && s.contacts != nil {
		user = s.enrich(ctx, user, accessToken)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: issuing session for user %s: %w", user.ID, err)
	}

	return &LoginResult{User: user, Token: token}, nil
}

// enrich prefills blank contact fields from the People API.
//
// Fill-if-blank only: a field is eligible when its current value is nil or
// "". User-entered data is never overwritten by provider data. Every failure
// path returns the user unchanged — enrichment can only add, never break a
// login.
func (s *ProfileService) enrich(ctx context.Context, user *model.User, accessToken string) *model.User {
	contact, err := s.contacts.FetchContact(ctx, accessToken)
	if err != nil {
		s.logger.Warn("contact enrichment failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return user
	}

	update := model.ProfileUpdate{
		Phone:        fillIfBlank(user.Phone, contact.Phone),
		AddressLine1: fillIfBlank(user.AddressLine1, contact.AddressLine1),
		AddressLine2: fillIfBlank(user.AddressLine2, contact.AddressLine2),
		City:         fillIfBlank(user.City, contact.City),
		State:        fillIfBlank(user.State, contact.State),
		PostalCode:   fillIfBlank(user.PostalCode, contact.PostalCode),
		Country:      fillIfBlank(user.Country, contact.Country),
	}
	if update.IsZero() {
		return user
	}

	updated, err := s.users.UpdateProfile(ctx, user.ID, update)
	if err != nil {
		s.logger.Warn("applying contact enrichment failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return user
	}
	return updated
}

// fillIfBlank returns the incoming value as an update when the current field
// is blank (nil or empty) and the incoming value is non-empty; nil otherwise.
func fillIfBlank(current *string, incoming string) *string {
	if incoming == "" {
		return nil
	}
	if current != nil && *current != "" {
		return nil
	}
	return &incoming
}

// deriveUsername builds the default username offered on first login: the
// display name lower-cased with all whitespace stripped, or — when there is
// no usable name — the local part of the email address. This default only
// back-fills an unset username; it never replaces a user's choice.
func deriveUsername(name, email string) string {
	compact := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if compact != "" {
		return compact
	}
	if at := strings.Index(email, "@"); at > 0 {
		return strings.ToLower(email[:at])
	}
	return ""
}

// GetUser returns the user for the given internal ID.
// Used by the /me handler after the middleware verifies the session.
func (s *ProfileService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/profile: user ID must not be empty")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching user %s: %w", id, err)
	}

	return user, nil
}

// UpdateProfile applies a sparse profile edit for the given user.
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, fields model.ProfileUpdate) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/profile: user ID must not be empty")
	}

	user, err := s.users.UpdateProfile(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("service/profile: updating profile for user %s: %w", id, err)
	}

	return user, nil
}

// SchemaColumns reports the live column set of the user relation, sorted.
// Exposed on /debug/schema for diagnosing partially migrated environments.
func (s *ProfileService) SchemaColumns(ctx context.Context) ([]string, error) {
	cols, err := s.users.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/profile: introspecting schema: %w", err)
	}
	return cols, nil
}
