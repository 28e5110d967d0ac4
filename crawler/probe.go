package crawler

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// ProxyProbe reports whether something is listening on a local TCP port.
type ProxyProbe interface {
	Listening(ctx context.Context, port int) (bool, error)
}

// ProxyProbeFunc adapts a function to ProxyProbe.
type ProxyProbeFunc func(ctx context.Context, port int) (bool, error)

func (f ProxyProbeFunc) Listening(ctx context.Context, port int) (bool, error) {
	return f(ctx, port)
}

// SocketProbe inspects the host's socket table.
type SocketProbe struct{}

// Listening reports whether any TCP socket on the host is in the LISTEN
// state on port.
func (SocketProbe) Listening(ctx context.Context, port int) (bool, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return false, fmt.Errorf("probe: list tcp sockets: %w", err)
	}
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == uint32(port) {
			return true, nil
		}
	}
	return false, nil
}
