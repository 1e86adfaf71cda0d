package transport

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ProxyConfig describes a forward proxy and the hosts that must bypass
// it. It is resolved once at connection construction; the bypass
// decision itself happens per send because the process no_proxy
// environment may change between calls.
type ProxyConfig struct {
	// Host is the proxy hostname (empty disables proxying)
	Host string

	// Port is the proxy port
	Port int

	// User and Pass are optional proxy credentials
	User string
	Pass string

	// NoProxy lists host patterns that bypass the proxy. Entries may
	// be exact hostnames, ".domain" suffixes, or glob patterns
	// (e.g. "*.internal.example.com").
	NoProxy []string
}

// ProxyFromEnvironment builds a ProxyConfig from the conventional
// HTTPS_PROXY/HTTP_PROXY and NO_PROXY variables. It reads the
// environment once; returns nil when no proxy is configured.
func ProxyFromEnvironment() (*ProxyConfig, error) {
	raw := firstEnv("HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy")
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}

	cfg := &ProxyConfig{Host: u.Hostname()}
	if p := u.Port(); p != "" {
		cfg.Port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy port %q: %w", p, err)
		}
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Pass, _ = u.User.Password()
	}
	if noProxy := firstEnv("NO_PROXY", "no_proxy"); noProxy != "" {
		for _, entry := range strings.Split(noProxy, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				cfg.NoProxy = append(cfg.NoProxy, entry)
			}
		}
	}
	return cfg, nil
}

// URL returns the proxy address as a URL, or nil when no proxy host is
// configured.
func (p *ProxyConfig) URL() *url.URL {
	if p == nil || p.Host == "" {
		return nil
	}
	u := &url.URL{Scheme: "http", Host: p.Host}
	if p.Port != 0 {
		u.Host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	if p.User != "" {
		if p.Pass != "" {
			u.User = url.UserPassword(p.User, p.Pass)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u
}

// Bypasses reports whether host must connect directly, skipping the
// proxy. Both the configured NoProxy patterns and the process no_proxy
// environment are consulted, the latter at call time.
func (p *ProxyConfig) Bypasses(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if p != nil {
		for _, pattern := range p.NoProxy {
			if hostMatches(host, pattern) {
				return true
			}
		}
	}
	for _, entry := range strings.Split(firstEnv("no_proxy", "NO_PROXY"), ",") {
		if entry = strings.TrimSpace(entry); entry != "" && hostMatches(host, entry) {
			return true
		}
	}
	return false
}

// hostMatches reports whether host matches a no-proxy pattern.
func hostMatches(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	if pattern == "*" || pattern == host {
		return true
	}
	// ".example.com" and "example.com" both match any subdomain.
	suffix := strings.TrimPrefix(pattern, ".")
	if strings.HasSuffix(host, "."+suffix) {
		return true
	}
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := doublestar.Match(pattern, host)
		return err == nil && ok
	}
	return false
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
