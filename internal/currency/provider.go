// Package currency converts invoice amounts between currencies using live
// exchange rates with cached and static fallbacks.
package currency

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/noah-isme/backend-invoice/internal/resilience"
)

// ErrorKind classifies FX failures.
type ErrorKind string

const (
	KindUpstream        ErrorKind = "upstream"
	KindUnavailable     ErrorKind = "unavailable"
	KindUnknownCurrency ErrorKind = "unknown_currency"
	KindInvalidInput    ErrorKind = "invalid_input"
)

// Error describes a failed rate lookup or conversion.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("currency: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("currency: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a currency *Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}

// Provider fetches the latest rate table for a base currency.
type Provider interface {
	Latest(ctx context.Context, base string) (map[string]float64, error)
}

// ExchangeRateAPI talks to exchangerate-api.com v6.
type ExchangeRateAPI struct {
	BaseURL string
	Key     string
	Client  resilience.HTTPClient
}

type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Latest returns conversion_rates for base.
func (a ExchangeRateAPI) Latest(ctx context.Context, base string) (map[string]float64, error) {
	root := strings.TrimRight(a.BaseURL, "/")
	if root == "" {
		root = "https://v6.exchangerate-api.com"
	}
	endpoint := fmt.Sprintf("%s/v6/%s/latest/%s", root, url.PathEscape(a.Key), url.PathEscape(strings.ToUpper(base)))

	var body latestResponse
	if err := a.Client.GetJSON(ctx, endpoint, &body); err != nil {
		return nil, &Error{Kind: KindUpstream, Op: "latest", Err: err}
	}
	if body.Result != "success" {
		reason := body.ErrorType
		if reason == "" {
			reason = "result " + body.Result
		}
		return nil, &Error{Kind: KindUpstream, Op: "latest", Err: errors.New(reason)}
	}
	if len(body.ConversionRates) == 0 {
		return nil, &Error{Kind: KindUpstream, Op: "latest", Err: errors.New("empty rate table")}
	}
	return body.ConversionRates, nil
}
