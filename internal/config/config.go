package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/rescale/rescale-staging/internal/constants"
)

// Config is the configuration of the staging tools.
//
// INI format:
//
//	[api]
//	url = https://connection.keboola.com
//	token = <storage-api-token>
//
//	[proxy]
//	mode = no-proxy        ; no-proxy | system | basic | ntlm
//	host =
//	port = 0
//	user =
//	password =
//	no_proxy =
//	warmup = false
//
//	[staging]
//	input_type = local
//	data_dir = /data
//	manifest_format = json
//	binding_plan = /etc/staging/plan.yaml
//
//	[workspace]
//	network_policy = system
//	login_type =
//	backend_size =
//	read_only_storage_access =
//
//	[s3]
//	bucket =
//	region = us-east-1
//	prefix =
//	endpoint =
//	access_key_id =
//	secret_access_key =
//
//	[abs]
//	connection_string =
//	container =
//	prefix =
//
//	[log]
//	level = info
type Config struct {
	// API settings
	APIBaseURL string
	APIToken   string
	MaxRetries int

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	Staging   StagingConfig
	Workspace WorkspaceConfig
	S3        S3Config
	ABS       ABSConfig

	LogLevel string
}

// StagingConfig selects the staging type of the run and where local data lives.
type StagingConfig struct {
	InputType      string
	DataDir        string
	ManifestFormat string
	BindingPlan    string
}

// WorkspaceConfig holds defaults applied to workspace creation requests.
type WorkspaceConfig struct {
	NetworkPolicy string
	LoginType     string
	BackendSize   string
	// ReadOnlyStorageAccess is nil when the key is absent so the API default applies.
	ReadOnlyStorageAccess *bool
}

// S3Config locates the bucket used by the s3 staging type.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ABSConfig locates the container used by the abs staging type.
type ABSConfig struct {
	ConnectionString string
	Container        string
	Prefix           string
}

// Validation errors
var (
	ErrMissingAPIURL       = errors.New("api url is required")
	ErrMissingAPIToken     = errors.New("api token is required")
	ErrInvalidProxyMode    = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrInvalidFormat       = errors.New("manifest_format must be json or yaml")
	ErrMissingS3Bucket     = errors.New("s3 bucket is required for the s3 staging type")
	ErrMissingABSContainer = errors.New("abs connection_string and container are required for the abs staging type")
)

// New returns a Config with default values.
func New() *Config {
	return &Config{
		APIBaseURL: constants.DefaultAPIBaseURL,
		MaxRetries: constants.MaxRetries,
		ProxyMode:  "no-proxy",
		Staging: StagingConfig{
			InputType:      "local",
			DataDir:        DefaultDataDirectory(),
			ManifestFormat: constants.DefaultManifestFormat,
		},
		Workspace: WorkspaceConfig{
			NetworkPolicy: constants.DefaultNetworkPolicy,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from an INI file and applies environment overrides.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			cfg.applyEnv()
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	api := iniFile.Section("api")
	cfg.APIBaseURL = api.Key("url").MustString(cfg.APIBaseURL)
	cfg.APIToken = api.Key("token").String()
	cfg.MaxRetries = api.Key("max_retries").MustInt(cfg.MaxRetries)

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(0)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.ProxyPassword = proxy.Key("password").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	staging := iniFile.Section("staging")
	cfg.Staging.InputType = staging.Key("input_type").MustString(cfg.Staging.InputType)
	cfg.Staging.DataDir = staging.Key("data_dir").MustString(cfg.Staging.DataDir)
	cfg.Staging.ManifestFormat = staging.Key("manifest_format").MustString(cfg.Staging.ManifestFormat)
	cfg.Staging.BindingPlan = staging.Key("binding_plan").String()

	ws := iniFile.Section("workspace")
	cfg.Workspace.NetworkPolicy = ws.Key("network_policy").MustString(cfg.Workspace.NetworkPolicy)
	cfg.Workspace.LoginType = ws.Key("login_type").String()
	cfg.Workspace.BackendSize = ws.Key("backend_size").String()
	if key := ws.Key("read_only_storage_access"); key.String() != "" {
		v, err := key.Bool()
		if err != nil {
			return nil, fmt.Errorf("invalid [workspace] read_only_storage_access: %w", err)
		}
		cfg.Workspace.ReadOnlyStorageAccess = &v
	}

	s3 := iniFile.Section("s3")
	cfg.S3.Bucket = s3.Key("bucket").String()
	cfg.S3.Region = s3.Key("region").MustString(cfg.S3.Region)
	cfg.S3.Prefix = s3.Key("prefix").String()
	cfg.S3.Endpoint = s3.Key("endpoint").String()
	cfg.S3.AccessKeyID = s3.Key("access_key_id").String()
	cfg.S3.SecretAccessKey = s3.Key("secret_access_key").String()

	abs := iniFile.Section("abs")
	cfg.ABS.ConnectionString = abs.Key("connection_string").String()
	cfg.ABS.Container = abs.Key("container").String()
	cfg.ABS.Prefix = abs.Key("prefix").String()

	cfg.LogLevel = iniFile.Section("log").Key("level").MustString(cfg.LogLevel)

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment overrides. Environment beats the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv(constants.EnvAPIToken); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv(constants.EnvAPIURL); v != "" {
		c.APIBaseURL = v
	}
}

// MergeWithFlags applies command-line overrides. Flags beat environment and file.
func (c *Config) MergeWithFlags(apiToken, apiURL, inputType string) {
	if apiToken != "" {
		c.APIToken = apiToken
	}
	if apiURL != "" {
		c.APIBaseURL = apiURL
	}
	if inputType != "" {
		c.Staging.InputType = inputType
	}

	// Ensure HTTPS scheme
	if c.APIBaseURL != "" && !strings.HasPrefix(c.APIBaseURL, "http") {
		c.APIBaseURL = "https://" + c.APIBaseURL
	}
}

// Save writes the configuration to an INI file.
// The API token is stored in the file, so the file is created with 0600 permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()
	sections := []struct {
		name   string
		values [][2]string
	}{
		{"api", [][2]string{
			{"url", cfg.APIBaseURL},
			{"token", cfg.APIToken},
			{"max_retries", fmt.Sprintf("%d", cfg.MaxRetries)},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.ProxyMode},
			{"host", cfg.ProxyHost},
			{"port", fmt.Sprintf("%d", cfg.ProxyPort)},
			{"user", cfg.ProxyUser},
			{"no_proxy", cfg.NoProxy},
			{"warmup", fmt.Sprintf("%t", cfg.ProxyWarmup)},
		}},
		{"staging", [][2]string{
			{"input_type", cfg.Staging.InputType},
			{"data_dir", cfg.Staging.DataDir},
			{"manifest_format", cfg.Staging.ManifestFormat},
			{"binding_plan", cfg.Staging.BindingPlan},
		}},
		{"workspace", [][2]string{
			{"network_policy", cfg.Workspace.NetworkPolicy},
			{"login_type", cfg.Workspace.LoginType},
			{"backend_size", cfg.Workspace.BackendSize},
			{"read_only_storage_access", optionalBool(cfg.Workspace.ReadOnlyStorageAccess)},
		}},
		{"s3", [][2]string{
			{"bucket", cfg.S3.Bucket},
			{"region", cfg.S3.Region},
			{"prefix", cfg.S3.Prefix},
			{"endpoint", cfg.S3.Endpoint},
			{"access_key_id", cfg.S3.AccessKeyID},
			{"secret_access_key", cfg.S3.SecretAccessKey},
		}},
		{"abs", [][2]string{
			{"connection_string", cfg.ABS.ConnectionString},
			{"container", cfg.ABS.Container},
			{"prefix", cfg.ABS.Prefix},
		}},
		{"log", [][2]string{
			{"level", cfg.LogLevel},
		}},
	}
	for _, s := range sections {
		section, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.values {
			section.Key(kv[0]).SetValue(kv[1])
		}
	}

	// Use temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ValidateForConnection checks only the API connection settings.
func (c *Config) ValidateForConnection() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return ErrMissingAPIURL
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return ErrMissingAPIToken
	}
	return nil
}

// Validate checks settings that are independent of the command being run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}
	switch c.Staging.ManifestFormat {
	case "json", "yaml":
	default:
		return ErrInvalidFormat
	}
	switch c.Staging.InputType {
	case "s3":
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return ErrMissingS3Bucket
		}
	case "abs":
		if strings.TrimSpace(c.ABS.ConnectionString) == "" || strings.TrimSpace(c.ABS.Container) == "" {
			return ErrMissingABSContainer
		}
	}
	return nil
}

func optionalBool(b *bool) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%t", *b)
}
