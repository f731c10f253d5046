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

	// ExtendedHTTPTimeout is used for longer operations such as batch posts.
	ExtendedHTTPTimeout = 120 * time.Second
)

// Retry limits for the underlying HTTP transport.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Batching limits.
const (
	// DefaultBulkChunkSize is the number of rows grouped into one batch
	// request during bulk operations.
	DefaultBulkChunkSize = 50
)

// Time intervals and delays.
const (
	// DefaultPollInterval is used for polling long-running operations.
	DefaultPollInterval = 2 * time.Second

	// QuickPollInterval is used in tests for fast polling.
	QuickPollInterval = 10 * time.Millisecond

	// DefaultPollTimeout bounds how long an operation is watched.
	DefaultPollTimeout = 10 * time.Minute
)

// API surface.
const (
	// DataAPIPath is the versioned base path of the data API.
	DataAPIPath = "/api/data/v9.2"

	// BatchPath is where multipart batch requests are posted.
	BatchPath = DataAPIPath + "/$batch"

	// WhoAmIPath identifies the calling principal.
	WhoAmIPath = DataAPIPath + "/WhoAmI"
)

// Output formats.
const (
	// FormatJSON is the JSON output format.
	FormatJSON = "json"

	// FormatYAML is the YAML output format.
	FormatYAML = "yaml"

	// FormatTable is the table output format.
	FormatTable = "table"
)
