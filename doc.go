// Package main provides the entry point for the SSOBridge identity broker.
// SSOBridge decides per tenant whether a login is verified against the local
// credential store or one of several external SSO backends (CAS, LDAP,
// Keycloak, JWT gateway, REST-token gateway, HTTP-form gateway, or a
// federated relay service), normalizes each backend's response into a common
// result shape, and resolves or creates the matching local user record.
// When an external backend is unreachable it can fall back to verifying
// already-synchronized local credentials under an explicit per-tenant policy.
package main
