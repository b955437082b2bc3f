package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Queried only when the system resolver fails.
var publicDNS = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
	"208.67.222.222",         // Cisco OpenDNS
	"208.67.220.220",         // Cisco OpenDNS
}

var (
	localTimeout  = 1 * time.Second
	remoteTimeout = 2 * time.Second
)

// Lookup resolves host to a single address, preferring IPv4.
// IP literals and "localhost" are returned untouched. Otherwise the system
// resolver is tried first, then the public resolvers are raced.
func Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.String(), nil
	}
	if strings.EqualFold(host, "localhost") {
		return "127.0.0.1", nil
	}

	ip, err := localLookupIP(ctx, host)
	if err == nil && ip != "" {
		return ip, nil
	}

	return remoteLookupWithRace(ctx, host)
}

// Dial resolves addr through Lookup and then dials the resolved address.
// Its signature matches net.Dialer.DialContext so it can back http.Transport
// and websocket.Dialer alike.
func Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	resolved, err := Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(resolved, port))
}

func localLookupIP(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()

	var r net.Resolver
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return pickIP(ips)
}

func remoteLookupWithRace(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	results := make(chan result, len(publicDNS))
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	for _, server := range publicDNS {
		go func(server string) {
			ip, err := remoteLookupIP(ctx, host, server)
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range publicDNS {
		select {
		case res := <-results:
			if res.err == nil && res.ip != "" {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("public DNS race for %s: %w", host, ctx.Err())
		}
	}

	return "", fmt.Errorf("failed to resolve %s: all %d public DNS servers failed", host, failures)
}

func remoteLookupIP(ctx context.Context, host, server string) (string, error) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(strings.Trim(server, "[]"), "53"))
		},
	}

	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return pickIP(ips)
}

func pickIP(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
