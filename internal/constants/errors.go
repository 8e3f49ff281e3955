package constants

import "errors"

// Configuration errors.
var (
	ErrNoTenantConfigured = errors.New("no tenant configured, use 'weclapp login' or set WECLAPP_TENANT")
	ErrNoTokenConfigured  = errors.New("no API token configured, use 'weclapp login' or set WECLAPP_API_TOKEN")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
)

// Input errors.
var (
	ErrInvalidWhereClause = errors.New("invalid --where clause, expected \"field operator value\"")
	ErrInvalidWhereIn     = errors.New("invalid --where-in clause, expected field=value1,value2")
	ErrInvalidOutput      = errors.New("invalid output format, expected table, json or yaml")
	ErrDataRequired       = errors.New("--data is required")
	ErrPayloadNotObject   = errors.New("payload must be a single JSON or YAML object")
	ErrEmptyToken         = errors.New("API token must not be empty")
)

// File system errors.
var (
	ErrNotRegularFile             = errors.New("path is not a regular file")
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
)

// Lookup errors.
var (
	ErrEntityNotFound       = errors.New("entity not found")
	ErrTenantConfigNotFound = errors.New("tenant configuration not found")
)
