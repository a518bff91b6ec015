package endpoint

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RefreshThreshold is the discovery cache's refresh threshold (spec §4.8
// "a refresh threshold (3 minutes)").
const RefreshThreshold = 3 * time.Minute

// DiscoveredAddress is one entry of a discovery response (spec §6
// "Endpoint discovery response format").
type DiscoveredAddress struct {
	Address              string
	CachePeriodInMinutes int64
}

// DiscoverFunc performs the actual discovery operation call, returning the
// candidate addresses.
type DiscoverFunc func(ctx context.Context) ([]DiscoveredAddress, error)

// Storage holds a single cached discovered endpoint with expiration (spec
// §3 "EndpointStorage"). Only one discovery call is ever in flight per
// Storage at a time.
type Storage struct {
	mu         sync.RWMutex
	endpoint   string
	expiration time.Time

	group singleflight.Group
}

func (s *Storage) snapshot() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.endpoint == "" {
		return "", false
	}
	return s.endpoint, time.Now().Before(s.expiration)
}

func (s *Storage) set(endpoint string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoint = endpoint
	s.expiration = time.Now().Add(ttl)
}

// Discovery wraps Storage with a discover closure and an isRequired flag
// (spec §4.8 "AWSEndpointDiscovery").
type Discovery struct {
	storage    *Storage
	discover   DiscoverFunc
	isEnabled  bool
	isRequired bool
}

// NewDiscovery builds a Discovery. isRequired operations synchronously
// await discovery when the cached value is expiring; optional ones
// refresh in the background and serve the stale value meanwhile.
func NewDiscovery(discover DiscoverFunc, isEnabled, isRequired bool) *Discovery {
	return &Discovery{storage: &Storage{}, discover: discover, isEnabled: isEnabled, isRequired: isRequired}
}

// Resolve implements the decision table of spec §4.8: use the cached
// value if valid and (enabled or required); if expiring and required,
// synchronously await a refresh; if expiring and optional, refresh in the
// background and return the current (possibly stale) value; discovery
// errors are non-fatal unless required.
func (d *Discovery) Resolve(ctx context.Context, fallback string) (string, error) {
	if !d.isEnabled && !d.isRequired {
		return fallback, nil
	}

	cached, valid := d.storage.snapshot()
	if valid {
		return cached, nil
	}

	if d.isRequired {
		endpoint, err := d.refresh(ctx)
		if err != nil {
			return "", err
		}
		return endpoint, nil
	}

	go func() {
		// Background refresh: a fresh context is used since the caller's
		// ctx may be cancelled once this request completes.
		_, _ = d.refresh(context.Background())
	}()

	if cached != "" {
		return cached, nil
	}
	return fallback, nil
}

func (d *Discovery) refresh(ctx context.Context) (string, error) {
	v, err, _ := d.storage.group.Do("discover", func() (interface{}, error) {
		addresses, err := d.discover(ctx)
		if err != nil {
			return "", err
		}
		if len(addresses) == 0 {
			return "", nil
		}
		chosen := addresses[rand.Intn(len(addresses))]
		ttl := RefreshThreshold
		if chosen.CachePeriodInMinutes > 0 {
			ttl = time.Duration(chosen.CachePeriodInMinutes) * time.Minute
		}
		d.storage.set(chosen.Address, ttl)
		return chosen.Address, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
