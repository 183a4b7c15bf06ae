package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profile-hub/internal/auth"
)

// loginAndGetCookie performs a successful login and returns the session cookie.
func loginAndGetCookie(t *testing.T, app *testApp) *http.Cookie {
	t.Helper()
	rr := app.login(t, `{"idToken":"fake-token"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie after login")
	return nil
}

func TestHandleMe_NoCookie(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleMe_WithValidSession(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})
	cookie := loginAndGetCookie(t, app)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "a@x.com", body["user"]["email"])
	assert.Equal(t, "adalovelace", body["user"]["username"])
}

func TestHandleMe_ExpiredSession(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})

	token, err := app.sessions.IssueWithDuration("some-user", -1*time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleMe_VanishedUser(t *testing.T) {
	// A structurally valid session whose user never existed: the session is
	// no longer good, so the contract says 401 (not 404).
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})

	token, err := app.sessions.Issue("ghost-user-id")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleUpdateProfile_RequiresSession(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"bio":"x"}`))
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleUpdateProfile_AppliesFields(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})
	cookie := loginAndGetCookie(t, app)

	body := `{"bio":"analyst","phone":"555-0100","city":"London"}`
	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	user := resp["user"]
	assert.Equal(t, "analyst", user["bio"])
	assert.Equal(t, "555-0100", user["phone"])
	assert.Equal(t, "London", user["city"])
	// Untouched fields remain null
	assert.Nil(t, user["address_line1"])
}

func TestHandleUpdateProfile_EmptyBodyIsNoOp(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})
	cookie := loginAndGetCookie(t, app)

	req := httptest.NewRequest(http.MethodPost, "/profile", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "a@x.com", resp["user"]["email"])
	assert.Equal(t, "adalovelace", resp["user"]["username"])
}

func TestHandleUpdateProfile_ExplicitNullLeavesFieldAlone(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})
	cookie := loginAndGetCookie(t, app)

	// Set a bio first
	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"bio":"keep me"}`))
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// An explicit null must NOT erase it — null means "not supplied"
	req = httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"bio":null,"city":"London"}`))
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "keep me", resp["user"]["bio"])
	assert.Equal(t, "London", resp["user"]["city"])
}

func TestHandleUpdateProfile_MalformedBody(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})
	cookie := loginAndGetCookie(t, app)

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"bio":`))
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleDebugSchema(t *testing.T) {
	app := newTestApp(t, &FakeVerifier{Claims: verifiedClaims()})

	req := httptest.NewRequest(http.MethodGet, "/debug/schema", nil)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string][]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	cols := resp["columns"]
	require.NotEmpty(t, cols)
	assert.True(t, sort.StringsAreSorted(cols), "columns must be sorted: %v", cols)
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "email")
}
