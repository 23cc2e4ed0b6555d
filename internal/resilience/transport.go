package resilience

import (
	"net"
	"net/http"
	"time"
)

// TransportConfig sizes the shared HTTP client used for model backends
type TransportConfig struct {
	MaxIdle         int
	MaxActive       int
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ResponseTimeout time.Duration
}

// DefaultTransportConfig returns pool settings suited to a single inference host
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdle:         16,
		MaxActive:       32,
		IdleTimeout:     90 * time.Second,
		RequestTimeout:  30 * time.Second,
		ResponseTimeout: 20 * time.Second,
	}
}

// NewHTTPClient builds a pooled client. Connection reuse is left to
// http.Transport; callers share one client per backend.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdle,
		MaxConnsPerHost:       cfg.MaxActive,
		MaxIdleConnsPerHost:   max(cfg.MaxIdle/2, 1),
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}
}
