package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateWebhook registers a new webhook target. The response includes
// the signing secret.
func (c *Client) CreateWebhook(ctx context.Context, req *CreateWebhookRequest) (*WebhookDTO, error) {
	var result WebhookDTO
	if err := c.do(ctx, http.MethodPost, "/api/webhooks", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListWebhooks returns all registered webhooks.
func (c *Client) ListWebhooks(ctx context.Context) (*WebhookListResponse, error) {
	var result WebhookListResponse
	if err := c.do(ctx, http.MethodGet, "/api/webhooks", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetWebhook returns a webhook by ID.
func (c *Client) GetWebhook(ctx context.Context, webhookID string) (*WebhookDTO, error) {
	var result WebhookDTO
	path := fmt.Sprintf("/api/webhooks/%s", url.PathEscape(webhookID))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateWebhook applies a partial update to a webhook.
func (c *Client) UpdateWebhook(ctx context.Context, webhookID string, req *UpdateWebhookRequest) (*WebhookDTO, error) {
	var result WebhookDTO
	path := fmt.Sprintf("/api/webhooks/%s", url.PathEscape(webhookID))
	if err := c.do(ctx, http.MethodPatch, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteWebhook removes a webhook.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	path := fmt.Sprintf("/api/webhooks/%s", url.PathEscape(webhookID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// TestWebhook asks the server to send a test delivery to the webhook's
// URL and reports the outcome.
func (c *Client) TestWebhook(ctx context.Context, webhookID string) (*TestWebhookResponse, error) {
	var result TestWebhookResponse
	path := fmt.Sprintf("/api/webhooks/%s/test", url.PathEscape(webhookID))
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RotateWebhookSecret replaces the webhook's signing secret. The old
// secret stops validating immediately.
func (c *Client) RotateWebhookSecret(ctx context.Context, webhookID string) (*RotateSecretResponse, error) {
	var result RotateSecretResponse
	path := fmt.Sprintf("/api/webhooks/%s/rotate-secret", url.PathEscape(webhookID))
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
