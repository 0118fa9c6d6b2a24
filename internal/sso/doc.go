// Package sso implements the multi-tenant authentication broker.
//
// The broker decides per tenant whether a login is verified against the
// local credential store or one of several external backends, and turns
// every backend's idiosyncratic response into one common result shape.
//
// # Providers
//
// Each backend family implements the Provider interface:
//   - CASProvider validates a pre-obtained CAS ticket.
//   - LDAPProvider searches and binds against an LDAP directory.
//   - KeycloakProvider performs a resource-owner-password grant.
//   - JWTProvider verifies or mints HMAC-signed tokens with a tenant secret.
//   - RESTTokenProvider drives a two-step create/verify token gateway.
//   - HTTPFormProvider probes a legacy form-confirm endpoint.
//   - RelayProvider delegates to a federated relay service.
//
// Providers are stateless; the tenant configuration is passed into every
// call. The Registry resolves a tenant's configured SSO type to the adapter
// instance registered for it.
//
// # Error channels
//
// Two error channels are kept deliberately separate. Credential failures
// (bad password, unknown user, expired ticket) are returned as Result
// failures and never trigger fallback. Connectivity failures (timeout,
// refused connection, 5xx) are returned as *ConnectionError and exist
// solely to drive the fallback decision. Configuration errors look like
// connectivity failures but are excluded from fallback, because neither a
// retry nor a fallback can fix a misconfiguration.
//
// # Fallback
//
// FallbackProvider wraps any Provider. When the wrapped provider reports a
// fallbackable connectivity failure and the tenant permits it, the login is
// re-verified against already-synchronized local credentials. Fallback
// never creates users and fails closed on any doubt.
//
// # Identity synchronization
//
// Syncer turns a successful normalized result into a durable local user
// record, maintains the external identity mapping, optionally replaces the
// user's roles from external role names, and persists leftover attributes
// into the user's profile on a best-effort basis.
package sso
