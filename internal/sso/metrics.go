package sso

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loginAttempts counts login outcomes per SSO type.
	loginAttempts = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "ssobridge_login_attempts_total",
			Help: "Number of login attempts, differentiated by SSO type and outcome.",
		},
		[]string{"sso_type", "outcome"},
	)

	// fallbackActivations counts local fallback activations per failure class.
	fallbackActivations = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "ssobridge_fallback_activations_total",
			Help: "Number of local fallback activations, differentiated by SSO type and reason.",
		},
		[]string{"sso_type", "reason"},
	)
)
