package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCommercial(t *testing.T) {
	r := Resolve("us-east-1")
	require.Equal(t, PartitionAWS, r.Partition)
}

func TestResolveChina(t *testing.T) {
	r := Resolve("cn-north-1")
	require.Equal(t, PartitionAWSCN, r.Partition)
}

func TestResolveGovCloud(t *testing.T) {
	r := Resolve("us-gov-west-1")
	require.Equal(t, PartitionAWSUSGov, r.Partition)
}

func TestResolveISOB(t *testing.T) {
	r := Resolve("us-isob-east-1")
	require.Equal(t, PartitionAWSISOB, r.Partition)
}
