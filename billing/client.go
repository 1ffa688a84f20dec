// Package billing integrates the external payment processor: creating
// checkout sessions for employee-seat packages and verifying webhook
// signatures on payment confirmations.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client talks to the processor's REST API with secret-key auth and
// form-encoded bodies.
type Client struct {
	apiURL     string
	secretKey  string
	successURL string
	cancelURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(apiURL, secretKey, successURL, cancelURL string, logger *zap.Logger) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("billing"),
	}
}

// CheckoutSessionInput carries the package being bought and the correlation
// metadata echoed back by the webhook.
type CheckoutSessionInput struct {
	HREmail     string
	PackageID   string
	PackageName string
	Amount      int64 // smallest currency unit
	Currency    string
}

// CheckoutSession is the processor's session handle; URL is where the client
// completes payment.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession opens a hosted checkout session. Each call carries a
// fresh idempotency key so transport retries cannot double-charge.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("line_items[0][price_data][currency]", in.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(in.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", in.PackageName)
	form.Set("line_items[0][quantity]", "1")
	form.Set("metadata[hrEmail]", in.HREmail)
	form.Set("metadata[packageId]", in.PackageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("checkout session rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("package_id", in.PackageID),
		)
		return nil, fmt.Errorf("payment processor returned status %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("payment processor returned incomplete session")
	}

	c.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("hr_email", in.HREmail),
		zap.String("package_id", in.PackageID),
	)
	return &session, nil
}
