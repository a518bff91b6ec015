package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gocloudkit/awssdk-core/internal/awscreds"
	"github.com/gocloudkit/awssdk-core/internal/signer"
)

// CredentialResolver resolves the credential for the current request. The
// signing middleware calls it itself on every attempt, inside the retry
// loop; it is not resolved once per execute call, so any reuse across
// attempts comes from the credential provider's own cache.
type CredentialResolver func(ctx context.Context) (awscreds.Credential, error)

// Signing builds the signing middleware (spec §4.2 step 2): resolves the
// credential and signs URL-based for GET and HEAD requests, header-based
// for every other method.
func Signing(sign *signer.Signer, resolve CredentialResolver) Middleware {
	return func(ctx context.Context, mctx Context, req *Request, next Next) (*Response, error) {
		cred, err := resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("middleware: resolve credential: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("middleware: build request for signing: %w", err)
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}

		// GET/HEAD requests use query-string (URL) signing so the body is
		// discarded and the request remains re-issuable without a body
		// (spec §4.3 "For GET and HEAD requests... URL-based signing
		// becomes possible").
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			signedURL, signedHeaders, err := sign.SignURL(ctx, signingCredential(cred), req.Method, req.URL, httpReq.Header, 0)
			if err != nil {
				return nil, fmt.Errorf("middleware: url sign: %w", err)
			}
			req.URL = signedURL
			req.Headers = flattenHeader(signedHeaders)
			return next(ctx, mctx, req)
		}

		payloadHash := signer.PayloadHash(req.Body)
		if err := sign.SignHeaders(ctx, signingCredential(cred), httpReq, payloadHash); err != nil {
			return nil, fmt.Errorf("middleware: header sign: %w", err)
		}
		req.Headers = flattenHeader(httpReq.Header)
		req.Headers["X-Amz-Content-Sha256"] = payloadHash
		return next(ctx, mctx, req)
	}
}

func signingCredential(c awscreds.Credential) signer.Credential {
	return signer.Credential{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
