// Package region holds the Region/Partition data model (spec §3): a
// region is a tagged identifier belonging to exactly one partition, and a
// partition carries the DNS suffix that endpoint resolution's default
// endpoint pattern uses.
package region

import "strings"

// Partition identifies one of the AWS partitions.
type Partition struct {
	ID        string
	DNSSuffix string
}

var (
	PartitionAWS      = Partition{ID: "aws", DNSSuffix: "amazonaws.com"}
	PartitionAWSCN    = Partition{ID: "aws-cn", DNSSuffix: "amazonaws.com.cn"}
	PartitionAWSUSGov = Partition{ID: "aws-us-gov", DNSSuffix: "amazonaws.com"}
	PartitionAWSISO   = Partition{ID: "aws-iso", DNSSuffix: "c2s.ic.gov"}
	PartitionAWSISOB  = Partition{ID: "aws-iso-b", DNSSuffix: "sc2s.sgov.gov"}
)

// Region is an immutable (id, partition) pair.
type Region struct {
	ID        string
	Partition Partition
}

// Resolve classifies a region ID string into its partition by prefix,
// mirroring the AWS partition-matching rules (cn-*, us-gov-*, us-iso-*,
// us-isob-*, else the commercial partition).
func Resolve(id string) Region {
	switch {
	case strings.HasPrefix(id, "cn-"):
		return Region{ID: id, Partition: PartitionAWSCN}
	case strings.HasPrefix(id, "us-gov-"):
		return Region{ID: id, Partition: PartitionAWSUSGov}
	case strings.HasPrefix(id, "us-isob-"):
		return Region{ID: id, Partition: PartitionAWSISOB}
	case strings.HasPrefix(id, "us-iso-"):
		return Region{ID: id, Partition: PartitionAWSISO}
	default:
		return Region{ID: id, Partition: PartitionAWS}
	}
}
