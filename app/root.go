// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ssobridge",
	Short: "SSOBridge is a multi-tenant identity broker",
	Long: `SSOBridge is a multi-tenant identity broker that authenticates logins
against the local credential store or an external SSO backend (CAS, LDAP,
Keycloak, JWT, REST-token, HTTP-form or a federated relay), depending on the
tenant's configuration.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
