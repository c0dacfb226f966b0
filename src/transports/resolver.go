package transports

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// -----------------------------------------------------------------------------

// Resolver turns a host and a numeric or service port into candidate addresses.
type Resolver interface {
	Resolve(ctx context.Context, host, port string) ([]string, error)
}

// -----------------------------------------------------------------------------

// NetResolver resolves through a net.Resolver (the Go resolver by default).
type NetResolver struct {
	Resolver *net.Resolver
}

// -----------------------------------------------------------------------------

// NewNetResolver returns a NetResolver backed by net.DefaultResolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{Resolver: net.DefaultResolver}
}

// -----------------------------------------------------------------------------

// Resolve returns "ip:port" candidates in the order the resolver produced them.
// Any failure is returned as a *ResolveError.
func (r *NetResolver) Resolve(ctx context.Context, host, port string) ([]string, error) {
	if host == "" {
		return nil, &ResolveError{Host: host, Port: port, Err: errors.New("empty host")}
	}
	if port == "" {
		return nil, &ResolveError{Host: host, Port: port, Err: errors.New("empty port")}
	}

	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		portNum, err = resolver.LookupPort(ctx, "tcp", port)
		if err != nil {
			return nil, &ResolveError{Host: host, Port: port, Err: err}
		}
	}
	if portNum <= 0 || portNum > 65535 {
		return nil, &ResolveError{Host: host, Port: port, Err: errors.New("port out of range")}
	}

	hosts, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, &ResolveError{Host: host, Port: port, Err: err}
	}
	if len(hosts) == 0 {
		return nil, &ResolveError{Host: host, Port: port, Err: errors.New("no addresses")}
	}

	addrs := make([]string, 0, len(hosts))
	for _, h := range hosts {
		addrs = append(addrs, net.JoinHostPort(h, strconv.Itoa(portNum)))
	}
	return addrs, nil
}
