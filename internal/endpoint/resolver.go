// Package endpoint implements static endpoint resolution and optional
// runtime endpoint discovery (spec §4.8), grounded on the precedence
// rules enumerated there: caller override, then variant table, then
// region-specific override, then partition-global table, then the
// default "<serviceIdentifier>.<region>.<dnsSuffix>" pattern.
package endpoint

import (
	"fmt"

	"github.com/gocloudkit/awssdk-core/internal/region"
)

// Variant selects a fips/dualstack endpoint table entry.
type Variant string

const (
	VariantFIPS       Variant = "fips"
	VariantDualStack  Variant = "dualstack"
)

// PartitionEndpoint is a global (non-regional) override for a service,
// e.g. IAM's single us-east-1 endpoint used across the whole aws
// partition.
type PartitionEndpoint struct {
	Host   string
	Region string
}

// Resolver resolves a service's endpoint URL per spec §4.8 "Static
// resolution".
type Resolver struct {
	ServiceIdentifier  string
	ServiceEndpoints   map[string]string // region -> host override
	PartitionEndpoints map[string]PartitionEndpoint
	VariantEndpoints   map[Variant]map[string]string // variant -> region -> host
}

// Resolve computes the endpoint URL. override, if non-empty, is used
// verbatim (spec: "if a caller passed endpoint, use it verbatim").
func (r Resolver) Resolve(regionID string, variants []Variant, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if regionID == "" {
		return "", fmt.Errorf("endpoint: region is required")
	}
	reg := region.Resolve(regionID)

	for _, v := range variants {
		if table, ok := r.VariantEndpoints[v]; ok {
			if host, ok := table[regionID]; ok {
				return "https://" + host, nil
			}
		}
	}
	if host, ok := r.ServiceEndpoints[regionID]; ok {
		return "https://" + host, nil
	}
	if pe, ok := r.PartitionEndpoints[reg.Partition.ID]; ok {
		return "https://" + pe.Host, nil
	}

	return fmt.Sprintf("https://%s.%s.%s", r.ServiceIdentifier, regionID, reg.Partition.DNSSuffix), nil
}
