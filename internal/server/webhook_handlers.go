package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	chronoseal "github.com/chronoseal/capsule-go"
)

// createWebhookRequest is the JSON body for POST /api/webhooks.
type createWebhookRequest struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled"`
}

// updateWebhookRequest is the JSON body for PATCH /api/webhooks/:id. Only
// provided fields are updated.
type updateWebhookRequest struct {
	URL         *string `json:"url"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

type webhookStatsResponse struct {
	TotalDeliveries      int    `json:"total_deliveries"`
	SuccessfulDeliveries int    `json:"successful_deliveries"`
	FailedDeliveries     int    `json:"failed_deliveries"`
	LastDeliveryAt       string `json:"last_delivery_at,omitempty"`
	LastSuccessAt        string `json:"last_success_at,omitempty"`
	LastFailureAt        string `json:"last_failure_at,omitempty"`
}

// webhookResponse is the API view of a registered webhook. Secret is set
// only in responses to create and rotate-secret.
type webhookResponse struct {
	ID          string               `json:"id"`
	URL         string               `json:"url"`
	Secret      string               `json:"secret,omitempty"`
	Description string               `json:"description,omitempty"`
	Enabled     bool                 `json:"enabled"`
	Stats       webhookStatsResponse `json:"stats"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
	Total    int               `json:"total"`
}

type testWebhookResponse struct {
	Success        bool   `json:"success"`
	StatusCode     int    `json:"status_code,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

type rotateSecretResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

func toWebhookResponse(w *webhookRecord, includeSecret bool) webhookResponse {
	resp := webhookResponse{
		ID:          w.ID,
		URL:         w.URL,
		Description: w.Description,
		Enabled:     w.Enabled,
		Stats: webhookStatsResponse{
			TotalDeliveries:      w.Stats.TotalDeliveries,
			SuccessfulDeliveries: w.Stats.SuccessfulDeliveries,
			FailedDeliveries:     w.Stats.FailedDeliveries,
			LastDeliveryAt:       formatStatTime(w.Stats.LastDeliveryAt),
			LastSuccessAt:        formatStatTime(w.Stats.LastSuccessAt),
			LastFailureAt:        formatStatTime(w.Stats.LastFailureAt),
		},
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
	if includeSecret {
		resp.Secret = w.Secret
	}
	return resp
}

func formatStatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *Server) handleCreateWebhook(c echo.Context) error {
	var req createWebhookRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"invalid request body"}})
	}
	if !validWebhookURL(req.URL) {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"url must be a valid http or https URL"}})
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	w, err := s.registry.create(req.URL, req.Description, enabled)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toWebhookResponse(w, true))
}

func (s *Server) handleListWebhooks(c echo.Context) error {
	webhooks := s.registry.list()
	resp := webhookListResponse{
		Webhooks: make([]webhookResponse, 0, len(webhooks)),
		Total:    len(webhooks),
	}
	for _, w := range webhooks {
		resp.Webhooks = append(resp.Webhooks, toWebhookResponse(w, false))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetWebhook(c echo.Context) error {
	w, err := s.registry.get(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toWebhookResponse(w, false))
}

func (s *Server) handleUpdateWebhook(c echo.Context) error {
	var req updateWebhookRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"invalid request body"}})
	}
	if req.URL != nil && !validWebhookURL(*req.URL) {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"url must be a valid http or https URL"}})
	}

	w, err := s.registry.update(c.Param("id"), req.URL, req.Description, req.Enabled)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toWebhookResponse(w, false))
}

func (s *Server) handleDeleteWebhook(c echo.Context) error {
	if err := s.registry.delete(c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleTestWebhook(c echo.Context) error {
	w, err := s.registry.get(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	status, elapsed, err := s.notifier.test(c.Request().Context(), w.URL, w.Secret)
	s.registry.recordDelivery(w.ID, err == nil)

	resp := testWebhookResponse{
		Success:        err == nil,
		StatusCode:     status,
		ResponseTimeMS: elapsed.Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRotateWebhookSecret(c echo.Context) error {
	w, err := s.registry.rotateSecret(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rotateSecretResponse{ID: w.ID, Secret: w.Secret})
}
