package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	chronoseal "github.com/chronoseal/capsule-go"
	"github.com/chronoseal/capsule-go/internal/metrics"
)

// signatureHeader carries the HMAC-SHA256 of the payload, hex encoded with
// a "sha256=" prefix, keyed by the webhook secret.
const signatureHeader = "X-ChronoSeal-Signature"

// unlockNotification is the JSON payload POSTed for each newly unlockable
// capsule. The same shape flows over the SSE event stream.
type unlockNotification struct {
	Event      string `json:"event"`
	Index      int    `json:"index"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
	NotifiedAt string `json:"notified_at"`
}

// testNotification is the payload sent by POST /api/webhooks/:id/test.
type testNotification struct {
	Event    string `json:"event"`
	SentAt   string `json:"sent_at"`
	Delivery string `json:"delivery"`
}

// notifier delivers signed notifications to webhook endpoints. The url and
// secret fields hold the statically configured webhook; registered webhooks
// pass their own target per call.
type notifier struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func newNotifier(url, secret string, logger *logrus.Logger) *notifier {
	return &notifier{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (n *notifier) enabled() bool {
	return n.url != ""
}

// notify announces an unlock event to the statically configured webhook.
func (n *notifier) notify(ctx context.Context, ev chronoseal.UnlockEvent) error {
	if !n.enabled() {
		return nil
	}
	return n.announce(ctx, n.url, n.secret, ev)
}

// announce POSTs one unlock event. Failures are counted, never retried here;
// the next scan announces the capsule again if delivery failed.
func (n *notifier) announce(ctx context.Context, url, secret string, ev chronoseal.UnlockEvent) error {
	payload := unlockNotification{
		Event:      "capsule.unlockable",
		Index:      ev.Index,
		CreatedAt:  ev.CreatedAt,
		UnlockDate: ev.UnlockDate,
		NotifiedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := n.deliver(ctx, url, secret, payload); err != nil {
		metrics.UnlockNotifications.WithLabelValues("failed").Inc()
		return err
	}

	metrics.UnlockNotifications.WithLabelValues("delivered").Inc()
	n.logger.WithFields(logrus.Fields{
		"index":       ev.Index,
		"unlock_date": ev.UnlockDate,
	}).Info("unlock notification delivered")
	return nil
}

// test sends a webhook.test event and reports the raw outcome for the API.
func (n *notifier) test(ctx context.Context, url, secret string) (int, time.Duration, error) {
	payload := testNotification{
		Event:    "webhook.test",
		SentAt:   time.Now().UTC().Format(time.RFC3339),
		Delivery: "manual",
	}

	start := time.Now()
	status, err := n.deliver(ctx, url, secret, payload)
	return status, time.Since(start), err
}

// deliver POSTs a signed JSON payload to url and returns the response
// status. Status is zero when the request never reached the endpoint.
func (n *notifier) deliver(ctx context.Context, url, secret string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chronoseal/1.0")
	if secret != "" {
		req.Header.Set(signatureHeader, sign([]byte(secret), body))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("deliver notification: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// sign computes the signature header value for a payload.
func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header against a payload.
// Webhook consumers use it to authenticate notifications.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	expected := sign([]byte(secret), body)
	return hmac.Equal([]byte(expected), []byte(header))
}
