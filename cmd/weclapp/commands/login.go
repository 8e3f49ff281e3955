package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fivetwenty-io/weclapp-client/internal/auth"
	"github.com/fivetwenty-io/weclapp-client/internal/client"
	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// verifyEndpoint is counted on login to check tenant and token.
const verifyEndpoint = "user"

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var (
		baseURL    string
		skipVerify bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token for a tenant",
		Long: `Store an API token for a weclapp tenant.

The token is read from --token, WECLAPP_API_TOKEN or an interactive prompt and
verified against the API before it is saved to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant := viper.GetString("tenant")
			if tenant == "" {
				reader := bufio.NewReader(cmd.InOrStdin())
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Tenant: ")
				tenant, _ = reader.ReadString('\n')
				tenant = strings.TrimSpace(tenant)
			}

			if tenant == "" {
				return constants.ErrNoTenantConfigured
			}

			token := viper.GetString("token")
			if token == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "API token: ")

				byteToken, err := term.ReadPassword(int(os.Stdin.Fd()))
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				token = strings.TrimSpace(string(byteToken))
			}

			if token == "" {
				return constants.ErrEmptyToken
			}

			config, err := loadConfig()
			if err != nil {
				return err
			}

			tenantConfig, exists := config.Tenants[tenant]
			if !exists {
				tenantConfig = &TenantConfig{Tenant: tenant}
			}

			if baseURL != "" {
				tenantConfig.BaseURL = baseURL
			}

			if version := viper.GetInt("api_version"); version != 0 {
				tenantConfig.APIVersion = version
			}

			tokenManager := auth.NewConfigTokenManager(NewConfigPersister(), tenant, token)

			if !skipVerify {
				c, err := client.NewWithTokenManager(commandContext(cmd), buildClientConfig(tenantConfig), tokenManager)
				if err != nil {
					return fmt.Errorf("failed to create client: %w", err)
				}

				_, err = c.Query(verifyEndpoint).Count(commandContext(cmd), nil)
				_ = c.Close()

				if err != nil {
					if weclapp.IsUnauthorized(err) {
						return fmt.Errorf("token rejected by %s: %w", c.BaseURL(), err)
					}

					return fmt.Errorf("failed to connect to API: %w", err)
				}
			}

			config.Tenants[tenant] = tenantConfig
			if config.CurrentTenant == "" || len(config.Tenants) == 1 {
				config.CurrentTenant = tenant
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			err = tokenManager.Update(token, time.Time{})
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged in to tenant %s\n", tenant)

			if config.CurrentTenant == tenant {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Tenant '%s' set as current target\n", tenant)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL overriding the tenant URL")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "save the token without contacting the API")

	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		Long:  "Remove the stored API token of --tenant or the current tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			name, _, err := resolveTenant(config)
			if err != nil {
				return err
			}

			tenantConfig, exists := config.Tenants[name]
			if !exists {
				return fmt.Errorf("tenant '%s': %w", name, constants.ErrTenantConfigNotFound)
			}

			tenantConfig.Token = ""
			tenantConfig.TokenExpiresAt = nil

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully logged out of tenant %s\n", name)

			return nil
		},
	}
}
