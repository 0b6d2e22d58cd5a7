// Package catalog holds the static mapping from local services to the
// scheduling authority's service, location and resource ids, plus prices.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"slotkeeper/internal/domain"
)

type Service struct {
	ID               string  `yaml:"id" json:"id"`
	Slug             string  `yaml:"slug" json:"slug"`
	Name             string  `yaml:"name" json:"name"`
	PriceDollars     float64 `yaml:"price" json:"price"`
	DurationMinutes  int     `yaml:"duration_minutes" json:"duration_minutes"`
	RemoteServiceID  string  `yaml:"remote_service_id" json:"remote_service_id"`
	RemoteLocationID string  `yaml:"remote_location_id" json:"remote_location_id"`
	RemoteResourceID string  `yaml:"remote_resource_id" json:"remote_resource_id,omitempty"`
}

// PriceCents converts the catalog price to the payment authority's unit.
func (s Service) PriceCents() int64 {
	return int64(s.PriceDollars*100 + 0.5)
}

type file struct {
	Services []Service `yaml:"services"`
}

type Catalog struct {
	services        []Service
	defaultLocation string
}

func Load(path, defaultLocation string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw, defaultLocation)
}

func Parse(raw []byte, defaultLocation string) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Services, defaultLocation)
}

func New(services []Service, defaultLocation string) (*Catalog, error) {
	seen := make(map[string]struct{}, len(services)*2)
	for i, s := range services {
		if strings.TrimSpace(s.RemoteServiceID) == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): remote_service_id is required", i, s.Slug)
		}
		if s.ID == "" && s.Slug == "" {
			return nil, fmt.Errorf("catalog entry %d: id or slug is required", i)
		}
		for _, k := range []string{s.ID, s.Slug} {
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				return nil, fmt.Errorf("catalog entry %d: duplicate key %q", i, k)
			}
			seen[k] = struct{}{}
		}
	}
	return &Catalog{services: services, defaultLocation: defaultLocation}, nil
}

// Resolve finds a service by slug or local id. A service without its own
// location inherits the configured default; if neither exists the service
// cannot be booked.
func (c *Catalog) Resolve(ref string) (Service, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Service{}, domain.ErrUnknownService
	}
	for _, s := range c.services {
		if s.Slug == ref || s.ID == ref {
			if s.RemoteLocationID == "" {
				s.RemoteLocationID = c.defaultLocation
			}
			if s.RemoteLocationID == "" {
				return Service{}, fmt.Errorf("%w: %s has no location", domain.ErrUnknownService, ref)
			}
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("%w: %s", domain.ErrUnknownService, ref)
}

func (c *Catalog) Services() []Service {
	out := make([]Service, len(c.services))
	copy(out, c.services)
	return out
}
