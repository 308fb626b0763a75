// Package currency converts amounts between currencies using a live rate source.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultURL serves the latest rates keyed by a base currency code.
const DefaultURL = "https://api.exchangerate-api.com/v4/latest"

// DefaultTimeout bounds a single rate lookup.
const DefaultTimeout = 5 * time.Second

// Conversion is the result of Convert. When the rate lookup fails, Amount is
// the unconverted input, Converted is false and Warning tells why.
type Conversion struct {
	Amount    decimal.Decimal
	Currency  string
	Rate      decimal.Decimal
	Converted bool
	Warning   error
}

// Options configure a Converter.
type Options struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
	Logger  logrus.FieldLogger
}

// Converter looks up exchange rates over HTTP.
type Converter struct {
	url    string
	client *http.Client
	log    logrus.FieldLogger
}

// New creates a Converter. Zero options fall back to DefaultURL and DefaultTimeout.
func New(opts Options) *Converter {
	c := &Converter{url: opts.URL, client: opts.Client, log: opts.Logger}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

// Convert converts amount from one currency to another, rounding to two
// decimal places. It never fails: on any lookup problem it returns amount
// unchanged and reports the problem in Conversion.Warning.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) Conversion {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"from": from, "to": to}).Warn("currency conversion failed, amount left unconverted")
		return Conversion{Amount: amount, Currency: from, Warning: err}
	}
	toCode, _ := models.NormalizeCurrency(to)
	return Conversion{
		Amount:    amount.Mul(rate).Round(2),
		Currency:  toCode,
		Rate:      rate,
		Converted: true,
	}
}

// Rate returns the rate from one currency to another. Errors wrap
// models.ErrConversionUnavailable.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	fromCode, err := models.NormalizeCurrency(from)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	toCode, err := models.NormalizeCurrency(to)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	if fromCode == toCode {
		return decimal.NewFromInt(1), nil
	}

	rates, err := c.fetch(ctx, fromCode)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	rate, ok := rates[toCode]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, unavailable(fmt.Errorf("no %s rate for %s", toCode, fromCode))
	}
	return rate, nil
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *Converter) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, url.PathEscape(base))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	return body.Rates, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", models.ErrConversionUnavailable, err)
}
