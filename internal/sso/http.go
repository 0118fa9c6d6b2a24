package sso

import (
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

const (
	connectTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a backend response is read.
	maxResponseBytes = 1 << 20
)

// httpClient builds a request-scoped HTTP client honoring the tenant's read
// timeout. There is no retry: a timeout either fails the request or triggers
// fallback, never a silent re-attempt against the same backend.
func httpClient(cfg *models.TenantSSOConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.ReadTimeout(),
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}
}

// readBody drains a capped amount of the response body.
func readBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}
