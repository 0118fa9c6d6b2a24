package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIBasePath is the prefix for all JSON API routes.
	APIBasePath = "/api/v1"

	// ErrNilACSFatalLogMsg is used if app or cfg or service var pointer is nil.
	ErrNilACSFatalLogMsg = "app, cfg or auth service is nil"
)
