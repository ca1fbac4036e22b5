package discovery

import (
	"context"

	"github.com/brutella/dnssd"
	"github.com/doismellburning/samoyed/internal/snaperr"
)

// SnapcastServiceType is the mDNS service type Snapcast servers announce
// themselves under.
const SnapcastServiceType = "_snapcast._tcp"

// MDNSDiscoverer resolves the first Snapcast server seen on the network via
// mDNS browse/resolve. The production code this is grounded on
// (dns_sd_announce in the reference repo) only ever used dnssd to announce
// a service; resolving a server address means using the same library's
// browse side instead — no second mDNS library is introduced.
type MDNSDiscoverer struct {
	ServiceName string // defaults to SnapcastServiceType if empty
}

// Resolve blocks until the first server is found or ctx is canceled.
func (d MDNSDiscoverer) Resolve(ctx context.Context) (Result, error) {
	serviceType := d.ServiceName
	if serviceType == "" {
		serviceType = SnapcastServiceType
	}

	found := make(chan Result, 1)

	addFn := func(e dnssd.BrowseEntry) {
		if len(e.IPs) == 0 {
			return
		}

		select {
		case found <- Result{Host: e.IPs[0].String(), Port: e.Port}:
		default:
		}
	}

	removeFn := func(dnssd.BrowseEntry) {}

	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- dnssd.LookupType(lookupCtx, serviceType, addFn, removeFn)
	}()

	select {
	case r := <-found:
		return r, nil
	case err := <-errCh:
		if err != nil {
			return Result{}, snaperr.New(snaperr.Transport, "mdns_lookup", err) //nolint:exhaustruct
		}

		return Result{}, snaperr.New(snaperr.Transport, "mdns_lookup:closed_without_result", nil) //nolint:exhaustruct
	case <-ctx.Done():
		return Result{}, ctx.Err() //nolint:exhaustruct
	}
}
