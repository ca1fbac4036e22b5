// Package discovery implements the discovery collaborator from spec.md §6:
// resolve_server() → (ip, port), opaque to the core session.
package discovery

import (
	"context"

	"github.com/doismellburning/samoyed/internal/snaperr"
)

// Result is a resolved server endpoint.
type Result struct {
	Host string
	Port int
}

// Discoverer resolves the server to connect to.
type Discoverer interface {
	Resolve(ctx context.Context) (Result, error)
}

// StaticDiscoverer returns a fixed, configured host:port — used when mDNS
// discovery is disabled in favor of explicit configuration.
type StaticDiscoverer struct {
	Host string
	Port int
}

func (d StaticDiscoverer) Resolve(ctx context.Context) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, ctx.Err() //nolint:exhaustruct
	}

	if d.Host == "" || d.Port == 0 {
		return Result{}, snaperr.New(snaperr.ConfigRejected, "static_discoverer:resolve", nil) //nolint:exhaustruct
	}

	return Result{Host: d.Host, Port: d.Port}, nil
}
