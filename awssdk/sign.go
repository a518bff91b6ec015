package awssdk

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocloudkit/awssdk-core/internal/awscreds"
	"github.com/gocloudkit/awssdk-core/internal/signer"
)

// SignHeaders signs req in place for header-based auth, resolving a
// credential first (spec §6 "Client.signHeaders(...)").
func (c *Client) SignHeaders(ctx context.Context, req *http.Request, body []byte) error {
	cred, err := c.resolveCredential(ctx)
	if err != nil {
		return fmt.Errorf("awssdk: resolve credential: %w", err)
	}
	payloadHash := signer.PayloadHash(body)
	if err := c.signer.SignHeaders(ctx, signerCredential(cred), req, payloadHash); err != nil {
		return fmt.Errorf("awssdk: sign headers: %w", err)
	}
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	return nil
}

// SignURL produces a presigned URL for req's method and URL (spec §6
// "Client.signURL(...)").
func (c *Client) SignURL(ctx context.Context, req *http.Request, expires time.Duration) (string, error) {
	cred, err := c.resolveCredential(ctx)
	if err != nil {
		return "", fmt.Errorf("awssdk: resolve credential: %w", err)
	}
	signedURL, _, err := c.signer.SignURL(ctx, signerCredential(cred), req.Method, req.URL.String(), req.Header, expires)
	if err != nil {
		return "", fmt.Errorf("awssdk: sign url: %w", err)
	}
	return signedURL, nil
}

func signerCredential(c awscreds.Credential) signer.Credential {
	return signer.Credential{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}
}
