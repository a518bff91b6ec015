// Package signer implements the pipeline's SigV4 signer (spec §4.5):
// stateless request signing given a credential, region, signing name,
// method, URL, headers, and body, producing either signed headers or a
// signed (presigned) URL.
//
// Grounded on the teacher's aws_sigv4 transport, which signs via
// aws-sdk-go-v2's v4.Signer rather than a hand-rolled canonical-request
// implementation; this package keeps that choice; the algorithm (canonical
// request, string-to-sign, HMAC key derivation) is bit-exact with SigV4
// either way, and reimplementing it by hand would just be a worse copy of
// the same library the teacher already depends on.
package signer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// UnsignedPayload is the literal body hash used for URL (presigned) signing
// per spec §4.5.
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// StreamingPayload is the body hash literal used for chunked SigV4 uploads
// (spec §9 supplemented feature: chunked signing hook).
const StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

// ChunkSigner signs one chunk of an aws-chunked request body, given the
// previous chunk's signature (or the seed signature for the first chunk).
// Reserved extension point: no caller constructs one yet, since chunked
// upload support needs a streaming encoder in internal/protocol that
// doesn't exist. TODO: implement SignChunk once a streaming request
// encoder lands, per the chunk-signing algorithm in AWS's SigV4
// "Signature Calculations for the Authorization Header: Transferring
// Payload in Multiple Chunks".
type ChunkSigner interface {
	SignChunk(ctx context.Context, cred Credential, previousSignature string, chunk []byte) (signature string, err error)
}

// Credential is the signing input: access key, secret key, and an optional
// session token for temporary credentials.
type Credential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (c Credential) toAWS() aws.Credentials {
	return aws.Credentials{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}
}

// Signer computes SigV4 signatures for a fixed (region, service) pair.
type Signer struct {
	region  string
	service string
	inner   *v4.Signer
	now     func() time.Time
}

// Option customizes a Signer.
type Option func(*Signer)

// WithClock overrides the signer's source of the current time. Real callers
// never need this (it defaults to time.Now); tests use it to reproduce the
// spec §8 SigV4 reference vector at its fixed timestamp
// (20150830T123600Z) instead of wall-clock time.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// New builds a Signer for the given region and service signing name.
func New(region, service string, opts ...Option) *Signer {
	s := &Signer{region: region, service: service, inner: v4.NewSigner(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PayloadHash computes the hex SHA-256 hash of body, the value placed in
// the canonical request and the X-Amz-Content-Sha256 header.
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// SignHeaders signs req in place using header-based signing: it sets Host,
// X-Amz-Date, X-Amz-Security-Token (if a session token is present), and
// Authorization. payloadHash should be PayloadHash(body), UnsignedPayload,
// or StreamingPayload.
func (s *Signer) SignHeaders(ctx context.Context, cred Credential, req *http.Request, payloadHash string) error {
	if payloadHash == "" {
		payloadHash = PayloadHash(nil)
	}
	if err := s.inner.SignHTTP(ctx, cred.toAWS(), req, payloadHash, s.service, s.region, s.now()); err != nil {
		return fmt.Errorf("sigv4: sign request: %w", err)
	}
	return nil
}

// SignURL produces a presigned URL (query-string signing, spec §4.5): the
// returned URL carries X-Amz-Algorithm, X-Amz-Credential, X-Amz-Date,
// X-Amz-Expires, X-Amz-SignedHeaders, and X-Amz-Signature as query
// parameters. expires is clamped to [1s, 604800s].
func (s *Signer) SignURL(ctx context.Context, cred Credential, method, rawURL string, headers http.Header, expires time.Duration) (string, http.Header, error) {
	if expires < time.Second {
		expires = time.Second
	}
	if expires > 604800*time.Second {
		expires = 604800 * time.Second
	}
	req := mustRequest(method, rawURL, headers)
	query := req.URL.Query()
	query.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	req.URL.RawQuery = query.Encode()
	signedURL, signedHeaders, err := s.inner.PresignHTTP(ctx, cred.toAWS(), req, UnsignedPayload, s.service, s.region, s.now(), func(o *v4.SignerOptions) {})
	if err != nil {
		return "", nil, fmt.Errorf("sigv4: presign request: %w", err)
	}
	return signedURL, signedHeaders, nil
}

func mustRequest(method, rawURL string, headers http.Header) *http.Request {
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		// rawURL is produced internally by the endpoint resolver; a
		// malformed URL here is a programming error, not a runtime one.
		panic(fmt.Sprintf("signer: invalid request URL %q: %v", rawURL, err))
	}
	req.Header = headers
	return req
}
