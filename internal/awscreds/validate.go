package awscreds

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/gocloudkit/awssdk-core/internal/awserr"
)

// ValidateCredentials resolves a credential from p and confirms it is
// accepted by the service by calling STS GetCallerIdentity, grounded on
// the teacher's validateCredentials (internal/operation/transport
// aws_sigv4.go): same call shape (sts.NewFromConfig(...).GetCallerIdentity
// under a 5-second timeout), generalized to this package's Provider
// interface instead of a single fixed aws.Config.
//
// This is an optional startup check a caller can run once after
// constructing a provider; the request pipeline itself never calls it.
//
// stsBaseEndpointForTest lets tests point the STS call at an httptest
// server instead of the real service; nil in production.
var stsBaseEndpointForTest *string

func ValidateCredentials(ctx context.Context, p Provider, region string) error {
	cred, err := p.GetCredential(ctx, nil)
	if err != nil {
		return fmt.Errorf("awscreds: resolve credential: %w", err)
	}

	validationCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := sts.New(sts.Options{
		Region:       region,
		Credentials:  staticAWSCredentials{cred},
		BaseEndpoint: stsBaseEndpointForTest,
	})
	if _, err := client.GetCallerIdentity(validationCtx, &sts.GetCallerIdentityInput{}); err != nil {
		return &awserr.ProviderError{Provider: "validate", Reason: "STS GetCallerIdentity rejected the resolved credential", Cause: err}
	}
	return nil
}

// staticAWSCredentials adapts an already-resolved Credential to
// aws.CredentialsProvider so the STS client can reuse it without
// re-deriving it through p.
type staticAWSCredentials struct {
	cred Credential
}

func (s staticAWSCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     s.cred.AccessKeyID,
		SecretAccessKey: s.cred.SecretAccessKey,
		SessionToken:    s.cred.SessionToken,
		CanExpire:       s.cred.CanExpire,
		Expires:         s.cred.Expires,
	}, nil
}
