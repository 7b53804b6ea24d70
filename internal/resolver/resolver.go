// Package resolver maps tenant identifiers to live backend Core endpoints.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

// Directory is the slice of the tenancy store the resolver needs.
type Directory interface {
	GetClientByName(ctx context.Context, name string) (tenancy.Client, error)
	GetActiveRegistryByClient(ctx context.Context, clientID int64) (tenancy.RegistryEntry, error)
}

const healthProbeTimeout = 5 * time.Second

// Resolver turns a tenant name into the backend URL of its single active
// Core service. The registry is read fresh on every call; nothing is cached.
type Resolver struct {
	dir    Directory
	client *http.Client
}

// New constructs a Resolver over the given directory.
func New(dir Directory) *Resolver {
	return &Resolver{
		dir:    dir,
		client: &http.Client{Timeout: healthProbeTimeout},
	}
}

// Resolve looks up the client by case-insensitive name and returns the
// core URL of its active registry row. A missing client reports NotFound; a
// client without an active row reports UpstreamUnavailable.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (string, error) {
	c, err := r.dir.GetClientByName(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			return "", fmt.Errorf("%w: tenant %q not found", tenancy.ErrNotFound, tenantID)
		}
		return "", err
	}
	entry, err := r.dir.GetActiveRegistryByClient(ctx, c.ID)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			return "", fmt.Errorf("%w: no active core service configured for tenant %q", tenancy.ErrUpstreamUnavailable, tenantID)
		}
		return "", err
	}
	return entry.CoreURL, nil
}

// ProbeHealth issues a bounded GET against the backend's health endpoint.
// Any non-200 response or transport failure counts as unhealthy; the probe
// never returns an error.
func (r *Resolver) ProbeHealth(ctx context.Context, coreURL string) bool {
	healthy := r.probe(ctx, coreURL)
	obs.ObserveHealthProbe(healthy)
	return healthy
}

func (r *Resolver) probe(ctx context.Context, coreURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coreURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
