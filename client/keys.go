package client

import (
	"context"

	chronoseal "github.com/chronoseal/capsule-go"
)

// GenerateKeys asks the server to generate a fresh key pair. The
// recovery phrase in the result is shown exactly once; the server will
// not repeat it.
//
// The server refuses with ErrVaultNotEmpty when keys already exist.
func (c *Client) GenerateKeys(ctx context.Context) (*chronoseal.KeyInfo, error) {
	resp, err := c.api.GenerateKeys(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &chronoseal.KeyInfo{
		Fingerprint:    resp.Fingerprint,
		RecoveryPhrase: resp.RecoveryPhrase,
	}, nil
}

// RestoreKeys rebuilds the server's key pair from a recovery phrase.
func (c *Client) RestoreKeys(ctx context.Context, phrase string) (*chronoseal.KeyInfo, error) {
	resp, err := c.api.RestoreKeys(ctx, phrase)
	if err != nil {
		return nil, translate(err)
	}
	return &chronoseal.KeyInfo{Fingerprint: resp.Fingerprint}, nil
}

// Keys returns the fingerprint of the server's current key pair.
func (c *Client) Keys(ctx context.Context) (*chronoseal.KeyInfo, error) {
	resp, err := c.api.GetKeys(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &chronoseal.KeyInfo{Fingerprint: resp.Fingerprint}, nil
}
