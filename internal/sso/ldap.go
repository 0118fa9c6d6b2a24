package sso

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

// ldapConn is the subset of *ldap.Conn the adapter uses. A connection is
// request-scoped: opened, used, and unconditionally closed before the call
// returns. There is no pooling.
type ldapConn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(t time.Duration)
	Close() error
}

// ldapDialer opens a connection to the given LDAP URL.
type ldapDialer func(addr string, tlsConf *tls.Config) (ldapConn, error)

// LDAPProvider authenticates against the tenant's LDAP directory by
// searching for the user entry and re-binding with its DN and the supplied
// password. Connection parameters come from the tenant's additionalConfig
// blob ("ldap_url", "base_dn").
type LDAPProvider struct {
	dial ldapDialer
}

// NewLDAPProvider creates a new LDAP adapter.
func NewLDAPProvider() *LDAPProvider {
	return &LDAPProvider{dial: dialLDAP}
}

func dialLDAP(addr string, tlsConf *tls.Config) (ldapConn, error) {
	if tlsConf != nil {
		return ldap.DialURL(addr, ldap.DialWithTLSConfig(tlsConf))
	}

	return ldap.DialURL(addr)
}

// Type reports the SSO type this adapter serves.
func (p *LDAPProvider) Type() models.SSOType {
	return models.SSOTypeLDAP
}

// Authenticate searches for the user under the configured base DN and
// verifies the password with a bind as the found DN. The connection is
// closed on every exit path.
func (p *LDAPProvider) Authenticate(
	_ context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	ldapURL := cfg.AdditionalString("ldap_url")
	baseDN := cfg.AdditionalString("base_dn")

	if ldapURL == "" || baseDN == "" {
		return Fail(CodeConfigError, "ldap_url or base_dn not configured"), nil
	}

	addr, tlsConf, err := normalizeLDAPURL(ldapURL)
	if err != nil {
		return Fail(CodeConfigError, err.Error()), nil
	}

	conn, err := p.dial(addr, tlsConf)
	if err != nil {
		return nil, classifyTransport("failed to connect to LDAP server", err)
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	conn.SetTimeout(cfg.ReadTimeout())

	if errBind := conn.UnauthenticatedBind(""); errBind != nil {
		return nil, NetworkError("anonymous bind failed", errBind)
	}

	entry, errSearch := p.searchUserEntry(conn, baseDN, cfg.ReadTimeout(), req.Username)
	if errSearch != nil {
		return nil, errSearch
	}

	if entry == nil {
		return Fail(CodeUserNotFound, fmt.Sprintf("no LDAP entry for uid=%s", req.Username)), nil
	}

	if errAuth := conn.Bind(entry.DN, req.Password); errAuth != nil {
		return Fail(CodeInvalidCredentials, "LDAP bind rejected the password"), nil
	}

	res := Succeed(entry.DN, req.Username)
	res.Email = entry.GetAttributeValue("mail")
	res.FullName = entry.GetAttributeValue("displayName")

	if res.FullName == "" {
		res.FullName = entry.GetAttributeValue("cn")
	}

	res.AdditionalData["dn"] = entry.DN
	for _, attr := range entry.Attributes {
		if len(attr.Values) > 0 {
			res.AdditionalData[attr.Name] = attr.Values[0]
		}
	}

	return res, nil
}

// LoginURL is empty: LDAP has no interactive login page.
func (p *LDAPProvider) LoginURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// LogoutURL is empty: LDAP has no logout endpoint.
func (p *LDAPProvider) LogoutURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// searchUserEntry looks up the user entry by uid. A missing entry is
// reported as (nil, nil); transport failures as a connection error.
func (p *LDAPProvider) searchUserEntry(
	conn ldapConn,
	baseDN string,
	timeout time.Duration,
	username string,
) (*ldap.Entry, error) {
	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		int(timeout.Seconds()),
		false,
		fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)),
		[]string{"dn", "uid", "mail", "displayName", "cn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, NetworkError("LDAP search failed", err)
	}

	if len(searchResult.Entries) == 0 {
		return nil, nil
	}

	return searchResult.Entries[0], nil
}

// normalizeLDAPURL validates the scheme, applies default ports (389/636)
// and builds the TLS config for ldaps URLs.
func normalizeLDAPURL(raw string) (string, *tls.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid ldap_url: %w", err)
	}

	var defaultPort string

	switch strings.ToLower(u.Scheme) {
	case "ldap":
		defaultPort = "389"
	case "ldaps":
		defaultPort = "636"
	default:
		return "", nil, fmt.Errorf("unsupported LDAP scheme %q", u.Scheme)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	}

	var tlsConf *tls.Config
	if strings.EqualFold(u.Scheme, "ldaps") {
		tlsConf = &tls.Config{ //nolint:gosec // verification stays on, only SNI is set
			ServerName: u.Hostname(),
		}
	}

	return u.String(), tlsConf, nil
}
