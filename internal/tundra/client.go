/*
Copyright 2024 CLMTE Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tundra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clmte/clmte/internal/request"
	"github.com/clmte/clmte/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ProductionBaseURL = "https://api.tundra.clmte.com"
	SandboxBaseURL    = "https://api-sandbox.tundra.clmte.com"
	TrackingBaseURL   = "https://clmte.com/track"

	DefaultTimeout = 10 * time.Second
)

var tracer = otel.Tracer("clmte.tundra")

// BaseURL picks the API host for the configured mode.
func BaseURL(production bool) string {
	if production {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// CompensationURL is the purchase endpoint for the configured mode.
func CompensationURL(production bool) string {
	return BaseURL(production) + "/compensation"
}

// CostURL is the pricing endpoint of an organisation. The organisation id is
// path-escaped.
func CostURL(production bool, organisationID string) string {
	return fmt.Sprintf("%s/organisation/%s/cost", BaseURL(production), url.PathEscape(organisationID))
}

// TrackingURL is the public page a customer can follow an offset on.
func TrackingURL(trackingID string, amount int) string {
	return fmt.Sprintf("%s?trackingId=%s&amount=%d", TrackingBaseURL, url.QueryEscape(trackingID), amount)
}

// Client talks to the offsetting API. It holds no state besides the HTTP
// client and is safe for concurrent use.
type Client struct {
	http *http.Client
}

// NewClient builds a client whose requests are bounded by timeout, falling
// back to DefaultTimeout when it is not positive. The timeout is the only
// bound on a dispatched purchase.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: request.NewClient(timeout)}
}

type apiError struct {
	Message string `json:"message"`
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type compensationResponse struct {
	ID            flexString          `json:"id"`
	CarbonDioxide decimal.NullDecimal `json:"carbonDioxide"`
	TrackingID    flexString          `json:"trackingID"`
	Errors        []apiError          `json:"errors"`
	Message       string              `json:"message"`
}

func (r compensationResponse) errorMessage() string {
	if len(r.Errors) > 0 && strings.TrimSpace(r.Errors[0].Message) != "" {
		return r.Errors[0].Message
	}
	return ""
}

type compensationRequest struct {
	Amount int `json:"amount"`
}

// Purchase buys amount offsets. It never returns an error: transport errors,
// error statuses and unreadable payloads all come back as a failed result
// carrying the best message available.
//
// A 2xx body is only a success when it carries an offset id and a
// non-negative carbon dioxide figure. A 2xx body without an id is a failure
// with an empty message, so the order is kept as PENDING and retried by the
// backlog sync instead of being recorded as bought without an offset id.
//
// Parameters:
// - ctx: context for the request and its span.
// - endpointURL: the compensation endpoint, see CompensationURL.
// - apiKey: sent as "Authorization: APIKey {apiKey}".
// - amount: number of offsets to buy.
//
// Returns:
// - model.PurchaseResult: exactly one of Success or Failure is set.
func (c *Client) Purchase(ctx context.Context, endpointURL, apiKey string, amount int) model.PurchaseResult {
	ctx, span := tracer.Start(ctx, "tundra.Purchase")
	defer span.End()
	span.SetAttributes(attribute.Int("offset.amount", amount))

	result := c.purchase(ctx, endpointURL, apiKey, amount)
	if !result.Succeeded() {
		span.SetStatus(codes.Error, result.Failure.Message)
		logrus.WithFields(logrus.Fields{
			"amount":  amount,
			"message": result.Failure.Message,
		}).Warn("offset purchase failed")
	} else {
		span.SetAttributes(attribute.String("offset.id", result.Success.OffsetID))
	}
	return result
}

func (c *Client) purchase(ctx context.Context, endpointURL, apiKey string, amount int) model.PurchaseResult {
	req, err := request.NewJSONRequest(ctx, http.MethodPost, endpointURL, compensationRequest{Amount: amount})
	if err != nil {
		return model.NewFailureResult(amount, errors.Wrap(err, "failed to build offset request").Error())
	}
	req.Header.Set("Authorization", "APIKey "+apiKey)

	var body compensationResponse
	resp, err := request.Call(c.http, req, &body)
	if resp == nil {
		return model.NewFailureResult(amount, errors.Wrap(err, "offset request failed").Error())
	}
	if err != nil {
		// Body could not be decoded; nothing trustworthy to report.
		logrus.WithError(err).WithField("status", resp.StatusCode).Debug("unreadable offset response")
		return model.NewFailureResult(amount, "")
	}

	if msg := body.errorMessage(); msg != "" {
		return model.NewFailureResult(amount, msg)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return model.NewFailureResult(amount, body.Message)
	}
	if body.ID == "" {
		return model.NewFailureResult(amount, "")
	}

	carbon := 0.0
	if body.CarbonDioxide.Valid {
		carbon = body.CarbonDioxide.Decimal.InexactFloat64()
	}
	if carbon < 0 {
		return model.NewFailureResult(amount, "")
	}

	success := model.OffsetSuccess{
		OffsetID:        string(body.ID),
		CarbonDioxideKg: carbon,
	}
	if body.TrackingID != "" {
		success.TrackingID = ptr.String(string(body.TrackingID))
		success.TrackingURL = ptr.String(TrackingURL(string(body.TrackingID), amount))
	}
	return model.NewSuccessResult(amount, success)
}

type costResponse struct {
	Price decimal.NullDecimal `json:"price"`
}

// GetPrice fetches the unit price of one offset from costURL.
//
// Returns:
// - decimal.Decimal: the price as reported, possibly zero.
// - error: an error if the request fails, the status is not 2xx or the price is missing.
func (c *Client) GetPrice(ctx context.Context, costURL string) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "tundra.GetPrice")
	defer span.End()

	req, err := request.NewJSONRequest(ctx, http.MethodGet, costURL, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to build price request")
	}

	var body costResponse
	resp, err := request.Call(c.http, req, &body)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, errors.Wrap(err, "price request failed")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decimal.Zero, errors.Errorf("price request returned status %d", resp.StatusCode)
	}
	if !body.Price.Valid {
		return decimal.Zero, errors.New("price missing from response")
	}
	return body.Price.Decimal, nil
}
