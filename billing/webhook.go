package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventCheckoutCompleted is the only webhook event type the backend acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// DefaultTolerance bounds how stale a webhook timestamp may be before it is
// rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

var (
	ErrBadSignatureHeader = fmt.Errorf("malformed signature header")
	ErrSignatureMismatch  = fmt.Errorf("webhook signature mismatch")
	ErrStaleTimestamp     = fmt.Errorf("webhook timestamp outside tolerance")
)

// Event is the decoded webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID          string `json:"id"`
			AmountTotal int64  `json:"amount_total"`
			Metadata    struct {
				HREmail   string `json:"hrEmail"`
				PackageID string `json:"packageId"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifySignature checks the processor's signature header against the raw
// request body. The header carries a unix timestamp and one or more HMAC
// candidates: "t=<ts>,v1=<hex>[,v1=<hex>...]"; the HMAC-SHA256 is computed
// over "<ts>.<body>" with the webhook secret.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	var ts int64
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrBadSignatureHeader
			}
			ts = parsed
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts == 0 || len(candidates) == 0 {
		return ErrBadSignatureHeader
	}

	stamped := time.Unix(ts, 0)
	if now.Sub(stamped) > tolerance || stamped.Sub(now) > tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// SignPayload produces a valid signature header for payload. Used by tests
// and local tooling to fabricate webhook deliveries.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("webhook event missing type")
	}
	return &ev, nil
}
