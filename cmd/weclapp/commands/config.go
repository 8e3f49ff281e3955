package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fivetwenty-io/weclapp-client/internal/auth"
	"github.com/fivetwenty-io/weclapp-client/internal/client"
	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	CurrentTenant string                   `json:"current_tenant,omitempty" yaml:"current_tenant,omitempty"`
	Output        string                   `json:"output,omitempty"         yaml:"output,omitempty"`
	Tenants       map[string]*TenantConfig `json:"tenants,omitempty"        yaml:"tenants,omitempty"`
}

// TenantConfig represents the stored settings of one weclapp tenant.
type TenantConfig struct {
	Tenant            string     `json:"tenant"                        yaml:"tenant"`
	BaseURL           string     `json:"base_url,omitempty"            yaml:"base_url,omitempty"`
	APIVersion        int        `json:"api_version,omitempty"         yaml:"api_version,omitempty"`
	Token             string     `json:"token,omitempty"               yaml:"token,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"    yaml:"token_expires_at,omitempty"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"        yaml:"last_updated,omitempty"`
	RequestsPerSecond float64    `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage weclapp CLI configuration including tenants and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUseCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			masked := maskConfig(config)

			switch viper.GetString("output") {
			case constants.FormatJSON:
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")

				return encoder.Encode(masked)
			case constants.FormatYAML:
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(masked)
			default:
				return displayConfigTable(cmd, masked)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Global keys: output, current_tenant.
Tenant keys (apply to --tenant or the current tenant): api_version, base_url,
requests_per_second.`,
		Args: cobra.ExactArgs(constants.KeyValueArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			err = setConfigValue(config, viper.GetString("tenant"), args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", args[0], args[1])

			return nil
		},
	}
}

func newConfigUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use TENANT",
		Short: "Switch the current tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if _, exists := config.Tenants[args[0]]; !exists {
				return fmt.Errorf("tenant '%s': %w", args[0], constants.ErrTenantConfigNotFound)
			}

			config.CurrentTenant = args[0]

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Current tenant is now %s\n", args[0])

			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file including all stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all configuration")

			return nil
		},
	}
}

// configFilePath returns the file viper loaded, or ~/.weclapp/config.yml.
func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".weclapp", "config.yml"), nil
}

func loadConfig() (*Config, error) {
	configFile, err := configFilePath()
	if err != nil {
		return nil, err
	}

	return loadConfigFile(configFile)
}

func loadConfigFile(configFile string) (*Config, error) {
	config := &Config{Tenants: make(map[string]*TenantConfig)}

	// #nosec G304 -- path comes from the --config flag or the user's home directory
	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Tenants == nil {
		config.Tenants = make(map[string]*TenantConfig)
	}

	return config, nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	return saveConfigFile(configFile, config)
}

func saveConfigFile(configFile string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setConfigValue(config *Config, tenant, key, value string) error {
	switch key {
	case "output":
		switch value {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		default:
			return constants.ErrInvalidOutput
		}

		config.Output = value

		return nil
	case "current_tenant":
		config.CurrentTenant = value

		return nil
	}

	if tenant == "" {
		tenant = config.CurrentTenant
	}

	tenantConfig, exists := config.Tenants[tenant]
	if !exists {
		return fmt.Errorf("tenant '%s': %w", tenant, constants.ErrTenantConfigNotFound)
	}

	switch key {
	case "api_version":
		version, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid api_version: %w", err)
		}

		err = weclapp.ValidateAPIVersion(version)
		if err != nil {
			return err
		}

		tenantConfig.APIVersion = version
	case "base_url":
		tenantConfig.BaseURL = value
	case "requests_per_second":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid requests_per_second: %w", err)
		}

		tenantConfig.RequestsPerSecond = rps
	default:
		return fmt.Errorf("'%s': %w", key, constants.ErrUnknownConfigKey)
	}

	return nil
}

func maskConfig(config *Config) *Config {
	masked := &Config{
		CurrentTenant: config.CurrentTenant,
		Output:        config.Output,
		Tenants:       make(map[string]*TenantConfig, len(config.Tenants)),
	}

	for name, tenantConfig := range config.Tenants {
		copied := *tenantConfig
		if copied.Token != "" {
			copied.Token = constants.MaskedSecret
		}

		masked.Tenants[name] = &copied
	}

	return masked
}

func displayConfigTable(cmd *cobra.Command, config *Config) error {
	out := cmd.OutOrStdout()

	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")
	_ = table.Append([]string{"Output", formatConfigValue(config.Output)})
	_ = table.Append([]string{"Current Tenant", formatConfigValue(config.CurrentTenant)})

	_, _ = fmt.Fprintln(out, "Global Configuration:")

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if len(config.Tenants) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo tenants configured. Use 'weclapp login' to add one.")

		return nil
	}

	_, _ = fmt.Fprintln(out, "\nConfigured Tenants:")

	tenantTable := tablewriter.NewWriter(out)
	tenantTable.Header("Name", "Tenant", "API Version", "Base URL", "Token", "Current")

	names := make([]string, 0, len(config.Tenants))
	for name := range config.Tenants {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		tenantConfig := config.Tenants[name]
		_ = tenantTable.Append([]string{
			name,
			tenantConfig.Tenant,
			formatAPIVersion(tenantConfig.APIVersion),
			formatConfigValue(tenantConfig.BaseURL),
			formatConfigValue(tenantConfig.Token),
			formatCurrentIndicator(name == config.CurrentTenant),
		})
	}

	err = tenantTable.Render()
	if err != nil {
		return fmt.Errorf("failed to render tenant table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return "-"
	}

	return value
}

func formatAPIVersion(version int) string {
	if version == 0 {
		version = weclapp.DefaultAPIVersion
	}

	return "v" + strconv.Itoa(version)
}

func formatCurrentIndicator(isCurrent bool) string {
	if isCurrent {
		return "*"
	}

	return ""
}

// resolveTenant picks the tenant from --tenant/WECLAPP_TENANT or the
// configured current tenant. The returned TenantConfig is never nil.
func resolveTenant(config *Config) (string, *TenantConfig, error) {
	name := viper.GetString("tenant")
	if name == "" {
		name = config.CurrentTenant
	}

	if name == "" {
		return "", nil, constants.ErrNoTenantConfigured
	}

	tenantConfig, exists := config.Tenants[name]
	if !exists {
		tenantConfig = &TenantConfig{}
	}

	if tenantConfig.Tenant == "" {
		copied := *tenantConfig
		copied.Tenant = name
		tenantConfig = &copied
	}

	return name, tenantConfig, nil
}

// buildClientConfig merges flags and environment over the stored tenant
// settings.
func buildClientConfig(tenantConfig *TenantConfig) *weclapp.Config {
	config := &weclapp.Config{
		Tenant:            tenantConfig.Tenant,
		BaseURL:           tenantConfig.BaseURL,
		APIVersion:        tenantConfig.APIVersion,
		RequestsPerSecond: tenantConfig.RequestsPerSecond,
		HTTPTimeout:       constants.DefaultHTTPTimeout,
	}

	if version := viper.GetInt("api_version"); version != 0 {
		config.APIVersion = version
	}

	if viper.GetBool("verbose") {
		config.Debug = true
		config.Logger = weclapp.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	return config
}

// createClient builds an API client for the selected tenant. Token
// replacements are written back to the configuration file.
func createClient(cmd *cobra.Command) (*client.Client, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	name, tenantConfig, err := resolveTenant(config)
	if err != nil {
		return nil, err
	}

	token := viper.GetString("token")
	if token == "" {
		token = tenantConfig.Token
	}

	if token == "" {
		return nil, constants.ErrNoTokenConfigured
	}

	tokenManager := auth.NewConfigTokenManager(NewConfigPersister(), name, token)

	c, err := client.NewWithTokenManager(commandContext(cmd), buildClientConfig(tenantConfig), tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return c, nil
}
