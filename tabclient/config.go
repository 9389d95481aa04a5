package tabclient

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
)

// Single-shot publish limit and chunk size, in megabytes. Files at or above
// the limit go through the chunked upload session path.
const (
	defaultFileSizeLimitMB = 64
	defaultChunkSizeMB     = 5

	bytesPerMB = 1024 * 1024
)

// ClientConfig holds connection parameters for the client. Values can come
// from a YAML file or environment variables via [LoadConfig]; environment
// variables override YAML. Secrets must only come from the environment.
type ClientConfig struct {
	// ServerURL is the base URL of the server, e.g. "https://bi.example.com".
	ServerURL string `yaml:"server_url" env:"TAB_SERVER_URL"`

	// Site is the content URL of the site to sign in to. Empty selects the
	// default site.
	Site string `yaml:"site" env:"TAB_SITE" env-default:""`

	// APIVersion is the REST API version to issue requests with. Defaults
	// to the lowest version every supported server speaks; use
	// Client.UseServerVersion to adopt the server's own version.
	APIVersion string `yaml:"api_version" env:"TAB_API_VERSION" env-default:""`

	// HTTPTimeoutSeconds bounds each HTTP call. Zero means no timeout.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" env:"TAB_HTTP_TIMEOUT_SECONDS" env-default:"0"`

	// FileSizeLimitMB is the single-shot publish limit. Sources at or above
	// this size upload through a chunked session.
	FileSizeLimitMB int64 `yaml:"file_size_limit_mb" env:"TAB_FILE_SIZE_LIMIT_MB" env-default:"64"`

	// ChunkSizeMB is the chunk size used by chunked upload sessions.
	ChunkSizeMB int64 `yaml:"chunk_size_mb" env:"TAB_CHUNK_SIZE_MB" env-default:"5"`

	// Username and Password authenticate with name/password credentials.
	Username string `yaml:"username" env:"TAB_USERNAME" env-default:""`
	Password string `yaml:"-" env:"TAB_PASSWORD"` // Secret - not in YAML

	// TokenName and Token authenticate with a personal access token.
	TokenName string `yaml:"token_name" env:"TAB_TOKEN_NAME" env-default:""`
	Token     string `yaml:"-" env:"TAB_TOKEN"` // Secret - not in YAML

	// Logger receives structured operation logs. Defaults to a no-op logger.
	Logger *zap.Logger `yaml:"-"`
}

// Credentials builds the sign-in credentials described by the config:
// a personal access token when TokenName is set, name/password otherwise.
func (cfg ClientConfig) Credentials() (Credentials, error) {
	switch {
	case cfg.TokenName != "":
		return PersonalAccessTokenAuth{TokenName: cfg.TokenName, Token: cfg.Token, Site: cfg.Site}, nil
	case cfg.Username != "":
		return TableauAuth{Username: cfg.Username, Password: cfg.Password, Site: cfg.Site}, nil
	default:
		return nil, fmt.Errorf("tabclient: no credentials configured (set TAB_TOKEN_NAME or TAB_USERNAME)")
	}
}

// LoadConfig reads client configuration from the YAML file at path, then
// applies environment overrides. An empty path reads the environment only.
func LoadConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("tabclient: reading config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("tabclient: reading config from environment: %w", err)
	}
	return cfg, nil
}
