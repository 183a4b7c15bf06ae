package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/sakif/profile-hub/internal/apperror"
)

// IdentityClaims is the verified portion of a Google ID token we care about.
// Google's payload carries many more claims — we only surface the ones the
// profile service needs.
type IdentityClaims struct {
	Subject       string // Google's stable "sub" id for the account
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// CredentialVerifier validates an externally supplied identity assertion and
// extracts its claims. The profile service depends on this interface so tests
// can substitute a fake instead of calling Google.
type CredentialVerifier interface {
	Verify(ctx context.Context, idToken string) (*IdentityClaims, error)
}

// GoogleVerifier verifies Google ID tokens with google.golang.org/api/idtoken.
//
// WHAT THE LIBRARY CHECKS:
//   - Signature against Google's published JWKS (the library caches the keys
//     and follows Google's rotation — we add no cache of our own)
//   - Expiry
//   - Audience against our OAuth client id
//
// We additionally pin the issuer and require a non-empty email. Verification
// is synchronous and single-attempt: a bad token is the caller's problem, not
// something to retry.
type GoogleVerifier struct {
	clientID string
}

// compile-time check that *GoogleVerifier implements CredentialVerifier
var _ CredentialVerifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier whose audience check is pinned to the
// given OAuth client id (the same id the frontend widget is configured with).
func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("auth: Google client id must not be empty")
	}
	return &GoogleVerifier{clientID: clientID}, nil
}

// Verify validates the raw ID token and returns its claims.
//
// Failures (bad signature, expired, wrong audience, malformed, missing email)
// all wrap apperror.ErrInvalidCredential. A token that verifies but carries
// email_verified=false is NOT rejected here — the claim is surfaced and the
// profile service enforces the policy, so the rule lives next to its
// consequences (no user row is created for unverified emails).
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*IdentityClaims, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, apperror.InvalidCredential(fmt.Sprintf("id token rejected: %v", err))
	}

	if iss := payload.Issuer; iss != "accounts.google.com" && iss != "https://accounts.google.com" {
		return nil, apperror.InvalidCredential(fmt.Sprintf("unexpected issuer %q", iss))
	}

	c := &IdentityClaims{
		Subject:       payload.Subject,
		Email:         stringClaim(payload.Claims, "email"),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
		Name:          stringClaim(payload.Claims, "name"),
		Picture:       stringClaim(payload.Claims, "picture"),
	}

	if c.Subject == "" || c.Email == "" {
		return nil, apperror.InvalidCredential("id token is missing sub or email")
	}

	return c, nil
}

// stringClaim reads a string claim, tolerating its absence.
func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// boolClaim reads a boolean claim. Some Google token variants encode
// email_verified as the string "true", so accept both forms.
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
