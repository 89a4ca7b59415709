package client

import (
	"context"

	chronoseal "github.com/chronoseal/capsule-go"
	"github.com/chronoseal/capsule-go/internal/api"
)

func toSummary(dto api.CapsuleDTO) chronoseal.CapsuleSummary {
	return chronoseal.CapsuleSummary{
		Index:      dto.Index,
		CreatedAt:  dto.CreatedAt,
		UnlockDate: dto.UnlockDate,
		Status:     chronoseal.Status(dto.Status),
	}
}

// CreateCapsule seals message until unlockDate (YYYY-MM-DD) on the
// server.
func (c *Client) CreateCapsule(ctx context.Context, message, unlockDate string) (*chronoseal.CapsuleSummary, error) {
	dto, err := c.api.CreateCapsule(ctx, message, unlockDate)
	if err != nil {
		return nil, translate(err)
	}
	summary := toSummary(*dto)
	return &summary, nil
}

// ListCapsules returns every capsule in creation order.
func (c *Client) ListCapsules(ctx context.Context) ([]chronoseal.CapsuleSummary, error) {
	resp, err := c.api.ListCapsules(ctx)
	if err != nil {
		return nil, translate(err)
	}

	summaries := make([]chronoseal.CapsuleSummary, 0, len(resp.Capsules))
	for _, dto := range resp.Capsules {
		summaries = append(summaries, toSummary(dto))
	}
	return summaries, nil
}

// Capsule returns one capsule's metadata.
func (c *Client) Capsule(ctx context.Context, index int) (*chronoseal.CapsuleSummary, error) {
	dto, err := c.api.GetCapsule(ctx, index)
	if err != nil {
		return nil, translate(err)
	}
	summary := toSummary(*dto)
	return &summary, nil
}

// DecryptCapsule opens a capsule on the server. Before the unlock date
// it fails with a TimeLockedError carrying the date, matching
// ErrTimeLocked.
func (c *Client) DecryptCapsule(ctx context.Context, index int) (*chronoseal.DecryptResult, error) {
	resp, err := c.api.DecryptCapsule(ctx, index)
	if err != nil {
		return nil, translate(err)
	}
	return &chronoseal.DecryptResult{
		Plaintext:  resp.Plaintext,
		CreatedAt:  resp.CreatedAt,
		UnlockDate: resp.UnlockDate,
	}, nil
}

// VerifyCapsule checks a capsule's signature without opening it. The
// time lock does not apply.
func (c *Client) VerifyCapsule(ctx context.Context, index int) (*chronoseal.VerifyResult, error) {
	resp, err := c.api.VerifyCapsule(ctx, index)
	if err != nil {
		return nil, translate(err)
	}
	return &chronoseal.VerifyResult{
		Verified:   resp.Verified,
		Reason:     resp.Reason,
		CreatedAt:  resp.CreatedAt,
		UnlockDate: resp.UnlockDate,
	}, nil
}

// Export downloads the server's full vault state, secret keys
// included. Treat the result like the keys themselves.
func (c *Client) Export(ctx context.Context) (*chronoseal.ExportedVault, error) {
	exported, err := c.api.ExportVault(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return exported, nil
}

// Import uploads vault state to the server. The server vault must be
// empty. Returns the number of capsules imported.
func (c *Client) Import(ctx context.Context, data *chronoseal.ExportedVault) (int, error) {
	n, err := c.api.ImportVault(ctx, data)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}
