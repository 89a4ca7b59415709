package api

import (
	"context"
	"fmt"
	"net/http"

	chronoseal "github.com/chronoseal/capsule-go"
	"github.com/chronoseal/capsule-go/internal/apierrors"
)

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	var result HealthResponse
	return c.do(ctx, http.MethodGet, "/healthz", nil, &result)
}

// GenerateKeys asks the server to generate a fresh key pair. The server
// refuses when keys already exist.
func (c *Client) GenerateKeys(ctx context.Context) (*KeysResponse, error) {
	var result KeysResponse
	if err := c.do(ctx, http.MethodPost, "/api/keys", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RestoreKeys rebuilds the server's key pair from a recovery phrase.
func (c *Client) RestoreKeys(ctx context.Context, phrase string) (*KeysResponse, error) {
	var result KeysResponse
	req := RestoreKeysRequest{RecoveryPhrase: phrase}
	if err := c.do(ctx, http.MethodPost, "/api/keys/restore", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetKeys returns the current key fingerprint. The recovery phrase is
// never included.
func (c *Client) GetKeys(ctx context.Context) (*KeysResponse, error) {
	var result KeysResponse
	if err := c.do(ctx, http.MethodGet, "/api/keys", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateCapsule seals a message until unlockDate (YYYY-MM-DD).
func (c *Client) CreateCapsule(ctx context.Context, message, unlockDate string) (*CapsuleDTO, error) {
	var result CapsuleDTO
	req := CreateCapsuleRequest{Message: message, UnlockDate: unlockDate}
	if err := c.do(ctx, http.MethodPost, "/api/capsules", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListCapsules returns all capsules in creation order.
func (c *Client) ListCapsules(ctx context.Context) (*CapsuleListResponse, error) {
	var result CapsuleListResponse
	if err := c.do(ctx, http.MethodGet, "/api/capsules", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCapsule returns a single capsule's metadata.
func (c *Client) GetCapsule(ctx context.Context, index int) (*CapsuleDTO, error) {
	var result CapsuleDTO
	path := fmt.Sprintf("/api/capsules/%d", index)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DecryptCapsule opens a capsule on the server.
func (c *Client) DecryptCapsule(ctx context.Context, index int) (*DecryptResponse, error) {
	var result DecryptResponse
	path := fmt.Sprintf("/api/capsules/%d/decrypt", index)
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyCapsule checks a capsule's signature without opening it.
func (c *Client) VerifyCapsule(ctx context.Context, index int) (*VerifyResponse, error) {
	var result VerifyResponse
	path := fmt.Sprintf("/api/capsules/%d/verify", index)
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExportVault downloads the server's full vault state.
func (c *Client) ExportVault(ctx context.Context) (*chronoseal.ExportedVault, error) {
	var result chronoseal.ExportedVault
	if err := c.do(ctx, http.MethodGet, "/api/export", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportVault uploads vault state to an empty server vault. It returns
// the number of capsules imported.
func (c *Client) ImportVault(ctx context.Context, data *chronoseal.ExportedVault) (int, error) {
	var result ImportResponse
	if err := c.do(ctx, http.MethodPost, "/api/import", data, &result); err != nil {
		return 0, err
	}
	return result.Capsules, nil
}

// OpenEventStream opens the server's SSE unlock stream. The caller owns
// the response body and must close it.
func (c *Client) OpenEventStream(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apierrors.NetworkError{Err: err, URL: c.baseURL + "/api/events", Attempt: 1}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}
	return resp, nil
}
