package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the config directory and the User-Agent header.
	AppName = "rescale-staging"

	// ConfigDirName is the directory under ~/.config holding the INI config file.
	ConfigDirName = "rescale-staging"

	// ConfigFileName is the INI config file name inside ConfigDirName.
	ConfigFileName = "config"

	// EnvAPIToken overrides the [api] token config key.
	EnvAPIToken = "RESCALE_STAGING_API_TOKEN"

	// EnvAPIURL overrides the [api] url config key.
	EnvAPIURL = "RESCALE_STAGING_API_URL"
)

// Workspace provisioning defaults
const (
	// DefaultAPIBaseURL is the workspace-management API used when none is configured.
	DefaultAPIBaseURL = "https://connection.keboola.com"

	// DefaultNetworkPolicy is sent with every workspace creation request.
	DefaultNetworkPolicy = "system"

	// SnowflakeKeyBits is the RSA modulus size for Snowflake key-pair logins.
	// Snowflake requires at least 2048 bits.
	SnowflakeKeyBits = 2048
)

// Staging defaults
const (
	// DefaultManifestFormat is the format strategies write manifests in.
	DefaultManifestFormat = "json"

	// ManifestSuffix is appended to file and table names for their manifest.
	ManifestSuffix = ".manifest"

	// TemporaryDirPrefix prefixes ephemeral local staging directories.
	TemporaryDirPrefix = "staging-"

	// MinTemporaryFreeBytes is the free space required on the filesystem
	// holding a new temporary staging directory.
	MinTemporaryFreeBytes = 64 * 1024 * 1024
)

// Retry configuration for the workspace-management API client.
// 429 and 5xx are retried, other 4xx are not.
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 10

	// RetryWaitMin - minimum wait between retries (1s)
	RetryWaitMin = 1 * time.Second

	// RetryWaitMax - maximum wait between retries (30s)
	// Exponential backoff caps at this value
	RetryWaitMax = 30 * time.Second
)

// Client-side rate limit of the workspace-management API client.
const (
	// WorkspaceAPIRatePerSec is the sustained request rate.
	WorkspaceAPIRatePerSec = 5.0

	// WorkspaceAPIBurstCapacity is the number of requests allowed at once.
	WorkspaceAPIBurstCapacity = 20.0
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPClientTimeout - overall timeout for a single API request (5 minutes)
	// Workspace creation on some backends takes well over a minute.
	HTTPClientTimeout = 300 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)
