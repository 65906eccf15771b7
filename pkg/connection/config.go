package connection

import (
	"fmt"
	"strings"
	"time"

	"rundeck/pkg/apperrors"
)

// SupportedAPIVersion is the highest server API version this library speaks.
const SupportedAPIVersion = 11

// Config holds connection settings for a Rundeck server.
type Config struct {
	Server   string `koanf:"server"`    // hostname or IP of the server
	Protocol string `koanf:"protocol"`  // http or https
	Port     int    `koanf:"port"`      // server port
	BasePath string `koanf:"base_path"` // custom base URL path, if any

	APIToken string `koanf:"api_token"` // user API token
	Username string `koanf:"username"`  // used with Password in place of APIToken
	Password string `koanf:"password"`

	APIVersion int `koanf:"api_version"`

	// InsecureSkipVerify disables server certificate verification (https only).
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`

	// Strict surfaces non-2xx statuses as errors. When false the response body
	// is returned unmodified regardless of status (tolerant mode).
	Strict bool `koanf:"strict"`

	Timeout time.Duration `koanf:"timeout"`
}

// DefaultConfig returns a Config with the standard defaults: a strict
// connection to http://localhost:4440 speaking the latest supported API version.
func DefaultConfig() Config {
	return Config{
		Server:     "localhost",
		Protocol:   "http",
		Port:       4440,
		APIVersion: SupportedAPIVersion,
		Strict:     true,
		Timeout:    30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.Server == "" {
		c.Server = "localhost"
	}
	if c.Protocol == "" {
		c.Protocol = "http"
	}
	if c.Port == 0 {
		c.Port = 4440
	}
	if c.APIVersion == 0 {
		c.APIVersion = SupportedAPIVersion
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

func (c Config) validate() error {
	if c.Protocol != "http" && c.Protocol != "https" {
		return apperrors.InvalidArgument("protocol", fmt.Sprintf("protocol must be http or https, got %q", c.Protocol))
	}
	if c.APIVersion < 1 || c.APIVersion > SupportedAPIVersion {
		return apperrors.InvalidArgument("api_version", fmt.Sprintf(
			"the requested API version %d is not supported, supported versions: 1-%d",
			c.APIVersion, SupportedAPIVersion))
	}
	if c.APIToken == "" && (c.Username == "" || c.Password == "") {
		return apperrors.Authentication("you must supply either an API token or a username and password")
	}
	return nil
}

// baseURL builds the server root URL. Default ports for the scheme are elided.
func (c Config) baseURL() string {
	host := c.Server
	if !(c.Protocol == "http" && c.Port == 80) && !(c.Protocol == "https" && c.Port == 443) {
		host = fmt.Sprintf("%s:%d", c.Server, c.Port)
	}
	url := fmt.Sprintf("%s://%s", c.Protocol, host)
	if c.BasePath != "" {
		url += "/" + strings.Trim(c.BasePath, "/")
	}
	return url
}
