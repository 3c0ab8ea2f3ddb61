package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/net/proxy"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 30
	defaultDNSCacheTTL         = 300 * time.Second
	dnsCacheSize               = 256
)

// dnsCache resolves host names once per TTL.
type dnsCache struct {
	entries  *expirable.LRU[string, []string]
	resolver *net.Resolver
}

func newDNSCache(ttl time.Duration) *dnsCache {
	return &dnsCache{
		entries:  expirable.NewLRU[string, []string](dnsCacheSize, nil, ttl),
		resolver: net.DefaultResolver,
	}
}

func (c *dnsCache) lookup(ctx context.Context, host string) ([]string, error) {
	if addrs, ok := c.entries.Get(host); ok {
		return addrs, nil
	}
	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	c.entries.Add(host, addrs)
	return addrs, nil
}

type dialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// cachedDial dials through the DNS cache, trying each resolved address in turn.
func cachedDial(cache *dnsCache, dialer *net.Dialer) dialContextFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) != nil {
			return dialer.DialContext(ctx, network, addr)
		}

		ips, err := cache.lookup(ctx, host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no addresses for %s", host)
		}
		return nil, lastErr
	}
}

// newTransport builds the shared pooled transport. proxyURL may be empty,
// socks5://, socks5h://, http:// or https://.
func newTransport(opts Options) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           cachedDial(newDNSCache(opts.DNSCacheTTL), dialer),
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxConnsPerHost:       opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if opts.ProxyURL == "" {
		return transport, nil
	}

	parsed, err := url.Parse(opts.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		host := parsed.Host
		if !strings.Contains(host, ":") {
			host += ":1080"
		}
		socks, err := proxy.SOCKS5("tcp", host, auth, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		if cd, ok := socks.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return socks.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s (supported: socks5, http, https)", parsed.Scheme)
	}

	return transport, nil
}
