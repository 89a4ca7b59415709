package client

import (
	"context"
	"time"

	"github.com/chronoseal/capsule-go/internal/api"
)

// Webhook represents a webhook registered on the server. Registered
// webhooks receive a signed POST for every capsule that becomes
// unlockable.
type Webhook struct {
	// ID is the unique identifier for the webhook.
	ID string
	// URL is the endpoint that receives unlock notifications.
	URL string
	// Secret is the HMAC signing secret. It is set only in the results
	// of CreateWebhook and RotateWebhookSecret; store it then.
	Secret string
	// Description is the optional description of the webhook.
	Description string
	// Enabled indicates whether the server delivers to this webhook.
	Enabled bool
	// Stats contains delivery statistics.
	Stats WebhookStats
	// CreatedAt is when the webhook was registered.
	CreatedAt time.Time
	// UpdatedAt is when the webhook was last modified.
	UpdatedAt time.Time
}

// WebhookStats represents webhook delivery statistics.
type WebhookStats struct {
	TotalDeliveries      int
	SuccessfulDeliveries int
	FailedDeliveries     int
	LastDeliveryAt       *time.Time
	LastSuccessAt        *time.Time
	LastFailureAt        *time.Time
}

// WebhookTestResult represents the outcome of a manual test delivery.
type WebhookTestResult struct {
	// Success indicates the endpoint answered with a 2xx status.
	Success bool
	// StatusCode is the HTTP status the endpoint returned, when it
	// answered at all.
	StatusCode int
	// ResponseTime is how long the delivery took.
	ResponseTime time.Duration
	// Error is the failure message when Success is false.
	Error string
}

// webhookCreateConfig holds configuration for creating a webhook.
type webhookCreateConfig struct {
	description string
	disabled    bool
}

// webhookUpdateConfig holds configuration for updating a webhook.
type webhookUpdateConfig struct {
	url         *string
	description *string
	enabled     *bool
}

// WebhookCreateOption configures webhook creation.
type WebhookCreateOption func(*webhookCreateConfig)

// WebhookUpdateOption configures webhook updates.
type WebhookUpdateOption func(*webhookUpdateConfig)

// WithWebhookDescription sets the description for a new webhook.
func WithWebhookDescription(description string) WebhookCreateOption {
	return func(c *webhookCreateConfig) {
		c.description = description
	}
}

// WithWebhookDisabled registers the webhook without enabling delivery.
func WithWebhookDisabled() WebhookCreateOption {
	return func(c *webhookCreateConfig) {
		c.disabled = true
	}
}

// WithUpdateURL updates the webhook URL.
func WithUpdateURL(url string) WebhookUpdateOption {
	return func(c *webhookUpdateConfig) {
		c.url = &url
	}
}

// WithUpdateDescription updates the webhook description.
func WithUpdateDescription(description string) WebhookUpdateOption {
	return func(c *webhookUpdateConfig) {
		c.description = &description
	}
}

// WithUpdateEnabled enables or disables delivery.
func WithUpdateEnabled(enabled bool) WebhookUpdateOption {
	return func(c *webhookUpdateConfig) {
		c.enabled = &enabled
	}
}

// CreateWebhook registers url to receive unlock notifications. The
// returned Webhook carries the signing secret; it is not shown again.
func (c *Client) CreateWebhook(ctx context.Context, url string, opts ...WebhookCreateOption) (*Webhook, error) {
	cfg := &webhookCreateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	req := &api.CreateWebhookRequest{
		URL:         url,
		Description: cfg.description,
	}
	if cfg.disabled {
		enabled := false
		req.Enabled = &enabled
	}

	dto, err := c.api.CreateWebhook(ctx, req)
	if err != nil {
		return nil, translate(err)
	}
	return webhookFromDTO(dto), nil
}

// ListWebhooks returns all registered webhooks.
func (c *Client) ListWebhooks(ctx context.Context) ([]*Webhook, error) {
	resp, err := c.api.ListWebhooks(ctx)
	if err != nil {
		return nil, translate(err)
	}

	webhooks := make([]*Webhook, 0, len(resp.Webhooks))
	for i := range resp.Webhooks {
		webhooks = append(webhooks, webhookFromDTO(&resp.Webhooks[i]))
	}
	return webhooks, nil
}

// GetWebhook returns a webhook by ID.
func (c *Client) GetWebhook(ctx context.Context, webhookID string) (*Webhook, error) {
	dto, err := c.api.GetWebhook(ctx, webhookID)
	if err != nil {
		return nil, translate(err)
	}
	return webhookFromDTO(dto), nil
}

// UpdateWebhook applies a partial update to a webhook.
func (c *Client) UpdateWebhook(ctx context.Context, webhookID string, opts ...WebhookUpdateOption) (*Webhook, error) {
	cfg := &webhookUpdateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	req := &api.UpdateWebhookRequest{
		URL:         cfg.url,
		Description: cfg.description,
		Enabled:     cfg.enabled,
	}

	dto, err := c.api.UpdateWebhook(ctx, webhookID, req)
	if err != nil {
		return nil, translate(err)
	}
	return webhookFromDTO(dto), nil
}

// DeleteWebhook removes a webhook.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	return translate(c.api.DeleteWebhook(ctx, webhookID))
}

// TestWebhook asks the server to send a test delivery to the webhook's
// endpoint and reports the outcome. The delivery counts toward the
// webhook's statistics.
func (c *Client) TestWebhook(ctx context.Context, webhookID string) (*WebhookTestResult, error) {
	resp, err := c.api.TestWebhook(ctx, webhookID)
	if err != nil {
		return nil, translate(err)
	}
	return &WebhookTestResult{
		Success:      resp.Success,
		StatusCode:   resp.StatusCode,
		ResponseTime: time.Duration(resp.ResponseTimeMS) * time.Millisecond,
		Error:        resp.Error,
	}, nil
}

// RotateWebhookSecret replaces the webhook's signing secret and returns
// the new one. The old secret stops validating immediately.
func (c *Client) RotateWebhookSecret(ctx context.Context, webhookID string) (string, error) {
	resp, err := c.api.RotateWebhookSecret(ctx, webhookID)
	if err != nil {
		return "", translate(err)
	}
	return resp.Secret, nil
}

// webhookFromDTO converts an API DTO to the public Webhook type.
func webhookFromDTO(dto *api.WebhookDTO) *Webhook {
	if dto == nil {
		return nil
	}

	return &Webhook{
		ID:          dto.ID,
		URL:         dto.URL,
		Secret:      dto.Secret,
		Description: dto.Description,
		Enabled:     dto.Enabled,
		Stats: WebhookStats{
			TotalDeliveries:      dto.Stats.TotalDeliveries,
			SuccessfulDeliveries: dto.Stats.SuccessfulDeliveries,
			FailedDeliveries:     dto.Stats.FailedDeliveries,
			LastDeliveryAt:       parseStatTime(dto.Stats.LastDeliveryAt),
			LastSuccessAt:        parseStatTime(dto.Stats.LastSuccessAt),
			LastFailureAt:        parseStatTime(dto.Stats.LastFailureAt),
		},
		CreatedAt: parseTime(dto.CreatedAt),
		UpdatedAt: parseTime(dto.UpdatedAt),
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseStatTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
