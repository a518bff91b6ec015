package awssdk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocloudkit/awssdk-core/internal/endpoint"
)

func TestConfigResolveEndpointDefault(t *testing.T) {
	cfg := Config{Region: "us-west-2", ServiceIdentifier: "dynamodb"}
	url, err := cfg.resolveEndpoint()
	require.NoError(t, err)
	require.Equal(t, "https://dynamodb.us-west-2.amazonaws.com", url)
}

func TestConfigResolveEndpointOverride(t *testing.T) {
	cfg := Config{Region: "us-west-2", ServiceIdentifier: "dynamodb", EndpointOverride: "https://localhost:8000"}
	url, err := cfg.resolveEndpoint()
	require.NoError(t, err)
	require.Equal(t, "https://localhost:8000", url)
}

func TestConfigWithDoesNotMutateReceiver(t *testing.T) {
	base := Config{Region: "us-east-1", ServiceIdentifier: "s3"}
	derived := base.With(func(c *Config) { c.Region = "eu-west-1" })

	require.Equal(t, "us-east-1", base.Region)
	require.Equal(t, "eu-west-1", derived.Region)
}

func TestConfigWithClonesMapsIndependently(t *testing.T) {
	base := Config{
		Region:            "us-east-1",
		ServiceIdentifier: "s3",
		ServiceEndpoints:  map[string]string{"us-east-1": "s3.amazonaws.com"},
	}
	derived := base.With(func(c *Config) { c.ServiceEndpoints["us-east-1"] = "s3.custom.example.com" })

	require.Equal(t, "s3.amazonaws.com", base.ServiceEndpoints["us-east-1"])
	require.Equal(t, "s3.custom.example.com", derived.ServiceEndpoints["us-east-1"])
}

func TestConfigResolveEndpointPrefersVariantOverRegion(t *testing.T) {
	cfg := Config{
		Region:            "us-east-1",
		ServiceIdentifier: "ec2",
		ServiceEndpoints:  map[string]string{"us-east-1": "ec2.us-east-1.amazonaws.com"},
		VariantEndpoints: map[endpoint.Variant]map[string]string{
			endpoint.VariantFIPS: {"us-east-1": "ec2-fips.us-east-1.amazonaws.com"},
		},
		Options: OptUseFIPSEndpoint,
	}
	url, err := cfg.resolveEndpoint()
	require.NoError(t, err)
	require.Equal(t, "https://ec2-fips.us-east-1.amazonaws.com", url)
}
