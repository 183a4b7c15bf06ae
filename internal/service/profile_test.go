package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profile-hub/internal/apperror"
	"github.com/sakif/profile-hub/internal/auth"
	"github.com/sakif/profile-hub/internal/model"
	"github.com/sakif/profile-hub/internal/people"
	"github.com/sakif/profile-hub/internal/repository/sqlite"
	"github.com/sakif/profile-hub/internal/service"
)

// FakeVerifier returns canned claims instead of calling Google.
type FakeVerifier struct {
	Claims *auth.IdentityClaims
	Err    error
}

func (f *FakeVerifier) Verify(ctx context.Context, idToken string) (*auth.IdentityClaims, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Claims, nil
}

// FakeContacts returns a canned People API contact.
type FakeContacts struct {
	Contact *people.Contact
	Err     error
	Called  bool
}

func (f *FakeContacts) FetchContact(ctx context.Context, accessToken string) (*people.Contact, error) {
	f.Called = true
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Contact, nil
}

func newTestService(t *testing.T, verifier auth.CredentialVerifier, contacts people.ContactSource) (*service.ProfileService, *sqlite.DB) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions, err := auth.NewSessionService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return service.NewProfileService(db, verifier, sessions, contacts, logger), db
}

func adaClaims() *auth.IdentityClaims {
	return &auth.IdentityClaims{
		Subject:       "g-1",
		Email:         "a@x.com",
		EmailVerified: true,
		Name:          "Ada Lovelace",
		Picture:       "https://example.com/ada.png",
	}
}

func TestLogin_CreatesUserWithDerivedUsername(t *testing.T) {
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, nil)

	result, err := svc.Login(context.Background(), "fake-id-token", "")
	require.NoError(t, err)

	assert.NotEmpty(t, result.User.ID)
	assert.Equal(t, "a@x.com", result.User.Email)
	require.NotNil(t, result.User.Username)
	assert.Equal(t, "adalovelace", *result.User.Username)
	require.NotNil(t, result.User.Role)
	assert.Equal(t, model.RoleUser, *result.User.Role)
	assert.NotEmpty(t, result.Token)

	// Untouched optional fields are null, never omitted or ""
	assert.Nil(t, result.User.Bio)
	assert.Nil(t, result.User.Phone)
}

func TestLogin_UsernameFallsBackToEmailLocalPart(t *testing.T) {
	claims := adaClaims()
	claims.Name = ""
	svc, _ := newTestService(t, &FakeVerifier{Claims: claims}, nil)

	result, err := svc.Login(context.Background(), "fake-id-token", "")
	require.NoError(t, err)
	require.NotNil(t, result.User.Username)
	assert.Equal(t, "a", *result.User.Username)
}

func TestLogin_UnverifiedEmailRejectedAndNothingWritten(t *testing.T) {
	claims := adaClaims()
	claims.EmailVerified = false
	svc, db := newTestService(t, &FakeVerifier{Claims: claims}, nil)

	_, err := svc.Login(context.Background(), "fake-id-token", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnverifiedEmail))

	// No user row was created or modified
	_, err = db.FindByEmail(context.Background(), "a@x.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestLogin_InvalidCredentialPropagates(t *testing.T) {
	svc, _ := newTestService(t, &FakeVerifier{Err: apperror.InvalidCredential("bad token")}, nil)

	_, err := svc.Login(context.Background(), "garbage", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidCredential))
}

func TestLogin_SessionTokenVerifies(t *testing.T) {
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, nil)

	result, err := svc.Login(context.Background(), "fake-id-token", "")
	require.NoError(t, err)

	sessions, err := auth.NewSessionService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	userID, err := sessions.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)
}

// =========================================================================
// ENRICHMENT TESTS
// =========================================================================

func TestLogin_EnrichmentFillsBlankFields(t *testing.T) {
	contacts := &FakeContacts{Contact: &people.Contact{
		Phone:        "555-0199",
		AddressLine1: "12 St James's Square",
		City:         "London",
		Country:      "GB",
	}}
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, contacts)

	result, err := svc.Login(context.Background(), "fake-id-token", "fake-access-token")
	require.NoError(t, err)
	assert.True(t, contacts.Called)

	require.NotNil(t, result.User.Phone)
	assert.Equal(t, "555-0199", *result.User.Phone)
	require.NotNil(t, result.User.City)
	assert.Equal(t, "London", *result.User.City)
	require.NotNil(t, result.User.Country)
	assert.Equal(t, "GB", *result.User.Country)
}

func TestLogin_EnrichmentNeverOverwritesExistingData(t *testing.T) {
	contacts := &FakeContacts{Contact: &people.Contact{Phone: "555-9999", City: "Paris"}}
	svc, db := newTestService(t, &FakeVerifier{Claims: adaClaims()}, contacts)

	// First login, then the user sets their own phone
	first, err := svc.Login(context.Background(), "fake-id-token", "")
	require.NoError(t, err)
	phone := "555-0100"
	_, err = db.UpdateProfile(context.Background(), first.User.ID, model.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)

	// Second login with enrichment: phone must survive, blank city is filled
	second, err := svc.Login(context.Background(), "fake-id-token", "fake-access-token")
	require.NoError(t, err)

	require.NotNil(t, second.User.Phone)
	assert.Equal(t, "555-0100", *second.User.Phone)
	require.NotNil(t, second.User.City)
	assert.Equal(t, "Paris", *second.User.City)
}

func TestLogin_EnrichmentFailureIsSwallowed(t *testing.T) {
	contacts := &FakeContacts{Err: errors.New("people api unavailable")}
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, contacts)

	result, err := svc.Login(context.Background(), "fake-id-token", "fake-access-token")
	require.NoError(t, err, "login must succeed even when enrichment fails")
	assert.NotEmpty(t, result.User.ID)
	assert.Nil(t, result.User.Phone)
}

func TestLogin_NoAccessTokenSkipsEnrichment(t *testing.T) {
	contacts := &FakeContacts{Contact: &people.Contact{Phone: "555-0199"}}
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, contacts)

	_, err := svc.Login(context.Background(), "fake-id-token", "")
	require.NoError(t, err)
	assert.False(t, contacts.Called)
}

// =========================================================================
// READ / UPDATE DELEGATIONS
// =========================================================================

func TestGetUser(t *testing.T) {
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, nil)

	result, err := svc.Login(context.Background(), "fake-id-token", "")
	require.NoError(t, err)

	user, err := svc.GetUser(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
}

func TestGetUser_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, nil)

	_, err := svc.GetUser(context.Background(), "no-such-user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestSchemaColumns(t *testing.T) {
	svc, _ := newTestService(t, &FakeVerifier{Claims: adaClaims()}, nil)

	cols, err := svc.SchemaColumns(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "email")
	assert.Contains(t, cols, "google_sub")
}
