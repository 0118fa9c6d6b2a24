package config

import (
	"time"

	"github.com/ssobridge/ssobridge/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Token     Token
	Webserver Webserver
}

// Token holds the session token signing settings.
type Token struct {
	Secret     string        // HMAC key for session tokens
	AccessTTL  time.Duration // access token lifetime, 0 = default
	RefreshTTL time.Duration // refresh token lifetime, 0 = default
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
}
