package country

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/noah-isme/backend-invoice/internal/resilience"
)

// ErrorKind classifies locator failures.
type ErrorKind string

const (
	KindUpstream    ErrorKind = "upstream"
	KindUnavailable ErrorKind = "unavailable"
	KindInvalid     ErrorKind = "invalid_response"
)

// Error is returned alongside the default location when detection fails.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("country: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Location is the detected region of a caller.
type Location struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Currency    string `json:"currency"`
	Timezone    string `json:"timezone"`
	Detected    bool   `json:"detected"`
}

// DefaultLocation is used whenever detection fails.
var DefaultLocation = Location{Country: "Unknown", CountryCode: "US", Currency: "USD", Timezone: "UTC"}

// Locator resolves an IP address to a region. Implementations always return a
// usable Location; a non-nil error means the default was substituted.
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// IPAPI queries ipapi.co style endpoints.
type IPAPI struct {
	BaseURL string
	Client  resilience.HTTPClient
}

type ipapiResponse struct {
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
	Currency    string `json:"currency"`
	Timezone    string `json:"timezone"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Locate looks up ip; an empty ip asks the upstream to use the caller address.
func (a IPAPI) Locate(ctx context.Context, ip string) (Location, error) {
	base := strings.TrimRight(a.BaseURL, "/")
	if base == "" {
		base = "https://ipapi.co"
	}
	endpoint := base + "/json/"
	if ip = strings.TrimSpace(ip); ip != "" {
		endpoint = base + "/" + url.PathEscape(ip) + "/json/"
	}

	var body ipapiResponse
	if err := a.Client.GetJSON(ctx, endpoint, &body); err != nil {
		kind := KindUpstream
		if errors.Is(err, resilience.ErrOpenCircuit) {
			kind = KindUnavailable
		}
		return DefaultLocation, &Error{Kind: kind, Op: "locate", Err: err}
	}
	if body.Error {
		return DefaultLocation, &Error{Kind: KindInvalid, Op: "locate", Err: errors.New(body.Reason)}
	}
	loc := Location{
		Country:     valueOr(body.CountryName, DefaultLocation.Country),
		CountryCode: strings.ToUpper(valueOr(body.CountryCode, DefaultLocation.CountryCode)),
		Currency:    strings.ToUpper(valueOr(body.Currency, DefaultLocation.Currency)),
		Timezone:    valueOr(body.Timezone, DefaultLocation.Timezone),
		Detected:    true,
	}
	return loc, nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
