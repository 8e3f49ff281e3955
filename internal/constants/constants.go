package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Client identification.
const (
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "weclapp-client-go/1.0"

	// EnvPrefix prefixes environment variables read by the client and CLI.
	EnvPrefix = "WECLAPP"
)

// Rate limiting.
const (
	// DefaultRateLimitBurst is the token bucket size for client-side limiting.
	DefaultRateLimitBurst = 5
)

// CLI display.
const (
	// MaxColumnWidth truncates table cells.
	MaxColumnWidth = 60

	// DefaultTableColumns is how many properties a table shows when none are selected.
	DefaultTableColumns = 6

	// JSONIndent is the indentation width of JSON output.
	JSONIndent = 2
)

// Command line arguments.
const (
	// KeyValueArgumentCount is the argument count of "KEY VALUE" commands.
	KeyValueArgumentCount = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"
)
