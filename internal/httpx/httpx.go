package httpx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultUserAgent = "stockticker/1.0"

// Transport returns the pooled transport shared by every upstream client.
func Transport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       10,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
}

// New builds a resty client with sane defaults. A zero timeout leaves the
// transport defaults in charge.
func New(timeout time.Duration, userAgent string) *resty.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	hc := &http.Client{Timeout: timeout, Transport: Transport()}
	return resty.NewWithClient(hc).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
}
