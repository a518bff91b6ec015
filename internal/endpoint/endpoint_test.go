package endpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOverrideWins(t *testing.T) {
	r := Resolver{ServiceIdentifier: "s3"}
	url, err := r.Resolve("us-east-1", nil, "https://custom.example.com")
	require.NoError(t, err)
	require.Equal(t, "https://custom.example.com", url)
}

func TestResolveDefaultPattern(t *testing.T) {
	r := Resolver{ServiceIdentifier: "dynamodb"}
	url, err := r.Resolve("us-east-1", nil, "")
	require.NoError(t, err)
	require.Equal(t, "https://dynamodb.us-east-1.amazonaws.com", url)
}

func TestResolveRegionOverride(t *testing.T) {
	r := Resolver{ServiceIdentifier: "s3", ServiceEndpoints: map[string]string{"us-east-1": "s3.amazonaws.com"}}
	url, err := r.Resolve("us-east-1", nil, "")
	require.NoError(t, err)
	require.Equal(t, "https://s3.amazonaws.com", url)
}

func TestResolvePartitionEndpoint(t *testing.T) {
	r := Resolver{ServiceIdentifier: "iam", PartitionEndpoints: map[string]PartitionEndpoint{
		"aws": {Host: "iam.amazonaws.com", Region: "us-east-1"},
	}}
	url, err := r.Resolve("eu-west-1", nil, "")
	require.NoError(t, err)
	require.Equal(t, "https://iam.amazonaws.com", url)
}

func TestResolveVariantTakesPrecedence(t *testing.T) {
	r := Resolver{
		ServiceIdentifier: "s3",
		ServiceEndpoints:  map[string]string{"us-east-1": "s3.amazonaws.com"},
		VariantEndpoints: map[Variant]map[string]string{
			VariantFIPS: {"us-east-1": "s3-fips.us-east-1.amazonaws.com"},
		},
	}
	url, err := r.Resolve("us-east-1", []Variant{VariantFIPS}, "")
	require.NoError(t, err)
	require.Equal(t, "https://s3-fips.us-east-1.amazonaws.com", url)
}

func TestDiscoveryCachesUntilExpiry(t *testing.T) {
	calls := 0
	d := NewDiscovery(func(context.Context) ([]DiscoveredAddress, error) {
		calls++
		return []DiscoveredAddress{{Address: "https://discovered.example.com", CachePeriodInMinutes: 5}}, nil
	}, true, true)

	first, err := d.Resolve(context.Background(), "https://fallback.example.com")
	require.NoError(t, err)
	require.Equal(t, "https://discovered.example.com", first)

	second, err := d.Resolve(context.Background(), "https://fallback.example.com")
	require.NoError(t, err)
	require.Equal(t, "https://discovered.example.com", second)
	require.Equal(t, 1, calls)
}

func TestDiscoveryDisabledUsesFallback(t *testing.T) {
	d := NewDiscovery(func(context.Context) ([]DiscoveredAddress, error) {
		t.Fatal("discover should not be called when disabled")
		return nil, nil
	}, false, false)

	endpoint, err := d.Resolve(context.Background(), "https://fallback.example.com")
	require.NoError(t, err)
	require.Equal(t, "https://fallback.example.com", endpoint)
}
