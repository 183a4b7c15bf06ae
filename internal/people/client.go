// Package people fetches contact data from the Google People API.
//
// This powers the optional profile prefill after login: when the frontend
// also obtained an OAuth access token (scope contact read), we ask the People
// API for the user's phone number and address and use them to fill blank
// profile fields. The whole thing is best-effort — any failure here is logged
// by the caller and the login proceeds with the base profile.
package people

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production People API endpoint.
const DefaultBaseURL = "https://people.googleapis.com/v1"

// Contact is the subset of People API data the profile service consumes.
// Empty strings mean "not provided".
type Contact struct {
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

// ContactSource is implemented by Client and faked in service tests.
type ContactSource interface {
	FetchContact(ctx context.Context, accessToken string) (*Contact, error)
}

// Client calls the People API with a caller-supplied bearer token.
type Client struct {
	baseURL string
	timeout time.Duration
}

var _ ContactSource = (*Client)(nil)

// NewClient creates a People API client. baseURL is overridable so tests can
// point it at an httptest server; pass "" for the real API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
	}
}

// person mirrors the slice of the people/me response we unmarshal.
// The API returns far more; we only declare what we read.
type person struct {
	PhoneNumbers []struct {
		Value string `json:"value"`
	} `json:"phoneNumbers"`
	Addresses []struct {
		StreetAddress   string `json:"streetAddress"`
		ExtendedAddress string `json:"extendedAddress"`
		City            string `json:"city"`
		Region          string `json:"region"`
		PostalCode      string `json:"postalCode"`
		CountryCode     string `json:"countryCode"`
	} `json:"addresses"`
}

// FetchContact retrieves phone and address data for the token's owner.
//
// The request goes through an oauth2 token-source client, which attaches the
// "Authorization: Bearer <token>" header on our behalf. A non-2xx response is
// an error — no retries, the caller decides whether to swallow it.
func (c *Client) FetchContact(ctx context.Context, accessToken string) (*Contact, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("people: access token must not be empty")
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = c.timeout

	url := c.baseURL + "/people/me?personFields=phoneNumbers,addresses"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("people: building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("people: calling people/me: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("people: people/me returned status %d", resp.StatusCode)
	}

	var p person
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("people: decoding people/me response: %w", err)
	}

	contact := &Contact{}
	if len(p.PhoneNumbers) > 0 {
		contact.Phone = p.PhoneNumbers[0].Value
	}
	if len(p.Addresses) > 0 {
		a := p.Addresses[0]
		contact.AddressLine1 = a.StreetAddress
		contact.AddressLine2 = a.ExtendedAddress
		contact.City = a.City
		contact.State = a.Region
		contact.PostalCode = a.PostalCode
		// Country codes are normalised to upper case on ingestion.
		contact.Country = strings.ToUpper(a.CountryCode)
	}

	return contact, nil
}
