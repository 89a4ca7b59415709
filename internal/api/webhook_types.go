package api

// CreateWebhookRequest is the request body for registering a webhook.
type CreateWebhookRequest struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// UpdateWebhookRequest is the request body for updating a webhook. Only
// non-nil fields are applied.
type UpdateWebhookRequest struct {
	URL         *string `json:"url,omitempty"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// WebhookStatsDTO carries a webhook's delivery counters. Timestamps are
// RFC 3339 strings, empty when the event has never happened.
type WebhookStatsDTO struct {
	TotalDeliveries      int    `json:"total_deliveries"`
	SuccessfulDeliveries int    `json:"successful_deliveries"`
	FailedDeliveries     int    `json:"failed_deliveries"`
	LastDeliveryAt       string `json:"last_delivery_at,omitempty"`
	LastSuccessAt        string `json:"last_success_at,omitempty"`
	LastFailureAt        string `json:"last_failure_at,omitempty"`
}

// WebhookDTO represents a registered webhook. Secret is populated only
// in create and rotate-secret responses.
type WebhookDTO struct {
	ID          string          `json:"id"`
	URL         string          `json:"url"`
	Secret      string          `json:"secret,omitempty"`
	Description string          `json:"description,omitempty"`
	Enabled     bool            `json:"enabled"`
	Stats       WebhookStatsDTO `json:"stats"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// WebhookListResponse represents the GET /api/webhooks response.
type WebhookListResponse struct {
	Webhooks []WebhookDTO `json:"webhooks"`
	Total    int          `json:"total"`
}

// TestWebhookResponse represents the result of a manual test delivery.
type TestWebhookResponse struct {
	Success        bool   `json:"success"`
	StatusCode     int    `json:"status_code,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// RotateSecretResponse represents the response from rotating a webhook's
// signing secret.
type RotateSecretResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}
