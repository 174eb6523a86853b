package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/util/sanitize"
)

// Config represents the client configuration
type Config struct {
	// Processing service
	APIBaseURL     string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gte=0"` // 0 means no overall timeout on the upload request

	// Proxy settings
	ProxyMode     string `validate:"oneof=no-proxy system basic ntlm"`
	ProxyHost     string
	ProxyPort     int `validate:"gte=0,lte=65535"`
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// Transport tuning
	DisableHTTP2 bool // Force HTTP/1.1
	ForceHTTP2   bool // Keep HTTP/2 even when a proxy is active

	// Result handling
	OutputDestination string // Directory, s3://bucket/prefix or azblob://container/prefix
	Overwrite         bool   // Replace existing local files instead of picking a free name
	Notify            bool   // Desktop notification when a result is saved

	// Object storage sinks. Credentials are only read from the environment.
	S3Region          string
	S3Endpoint        string // Custom endpoint for S3-compatible stores
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3SessionToken    string
	AzureAccountURL   string // Storage account URL including a SAS token

	// Logging
	LogFile         string
	DetailedLogging bool
}

// Environment holds the variables that override the config file.
// VITE_API_URL is honoured so a frontend .env can be shared with the client.
type Environment struct {
	APIURL            string `env:"LOHNKONTO_API_URL"`
	ViteAPIURL        string `env:"VITE_API_URL"`
	RequestTimeout    string `env:"LOHNKONTO_REQUEST_TIMEOUT"`
	Output            string `env:"LOHNKONTO_OUTPUT"`
	HTTPSProxy        string `env:"HTTPS_PROXY"`
	ProxyPassword     string `env:"LOHNKONTO_PROXY_PASSWORD"`
	NoProxy           string `env:"NO_PROXY"`
	S3Region          string `env:"AWS_REGION"`
	S3Endpoint        string `env:"LOHNKONTO_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3SessionToken    string `env:"AWS_SESSION_TOKEN"`
	AzureAccountURL   string `env:"LOHNKONTO_AZURE_SAS_URL"`
	LogFile           string `env:"LOHNKONTO_LOG_FILE"`
	DisableHTTP2      bool   `env:"DISABLE_HTTP2"`
	ForceHTTP2        bool   `env:"FORCE_HTTP2"`
}

var validate = validator.New()

// Default returns a config populated with defaults
func Default() *Config {
	return &Config{
		APIBaseURL: constants.DefaultAPIBaseURL,
		ProxyMode:  "no-proxy",
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 && len(record) >= 2 && strings.ToLower(record[0]) == "key" {
			continue
		}
		if len(record) < 2 {
			continue
		}

		key := strings.ToLower(sanitize.SanitizeField(record[0]))
		value := sanitize.SanitizeField(record[1])

		switch key {
		case "api_base_url":
			cfg.APIBaseURL = value
		case "request_timeout":
			if d, err := time.ParseDuration(value); err == nil {
				cfg.RequestTimeout = d
			}
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			// Secrets never come from the config file
			if value != "" {
				log.Printf("[WARN] proxy_password in config file is ignored - use LOHNKONTO_PROXY_PASSWORD or the runtime prompt")
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = parseBool(value)
		case "output":
			cfg.OutputDestination = value
		case "overwrite":
			cfg.Overwrite = parseBool(value)
		case "notify":
			cfg.Notify = parseBool(value)
		case "s3_region":
			cfg.S3Region = value
		case "s3_endpoint":
			cfg.S3Endpoint = value
		case "log_file":
			cfg.LogFile = value
		case "detailed_logging":
			cfg.DetailedLogging = parseBool(value)
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs
func SaveConfigCSV(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// proxy_password and storage credentials are intentionally not persisted
	records := [][]string{
		{"api_base_url", cfg.APIBaseURL},
		{"request_timeout", formatDuration(cfg.RequestTimeout)},
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", strconv.Itoa(cfg.ProxyPort)},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		{"output", cfg.OutputDestination},
		{"overwrite", strconv.FormatBool(cfg.Overwrite)},
		{"notify", strconv.FormatBool(cfg.Notify)},
		{"s3_region", cfg.S3Region},
		{"s3_endpoint", cfg.S3Endpoint},
		{"log_file", cfg.LogFile},
		{"detailed_logging", strconv.FormatBool(cfg.DetailedLogging)},
	}

	for _, record := range records {
		// Only write non-empty values to keep file clean
		if record[1] != "" && record[1] != "0" && record[1] != "false" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ReadEnvironment decodes the override variables from the process environment
func ReadEnvironment() (Environment, error) {
	var e Environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return e, fmt.Errorf("failed to read environment: %w", err)
	}
	return e, nil
}

// ApplyEnvironment overlays environment values on top of the file config
func (c *Config) ApplyEnvironment(e Environment) {
	switch {
	case e.APIURL != "":
		c.APIBaseURL = e.APIURL
	case e.ViteAPIURL != "":
		c.APIBaseURL = e.ViteAPIURL
	}
	if e.RequestTimeout != "" {
		if d, err := time.ParseDuration(e.RequestTimeout); err == nil {
			c.RequestTimeout = d
		} else {
			log.Printf("[WARN] ignoring LOHNKONTO_REQUEST_TIMEOUT=%q: %v", e.RequestTimeout, err)
		}
	}
	if e.Output != "" {
		c.OutputDestination = e.Output
	}
	if e.HTTPSProxy != "" && c.ProxyHost == "" {
		c.parseProxyURL(e.HTTPSProxy)
	}
	if e.ProxyPassword != "" {
		c.ProxyPassword = e.ProxyPassword
	}
	if e.NoProxy != "" && c.NoProxy == "" {
		c.NoProxy = e.NoProxy
	}
	if e.S3Region != "" {
		c.S3Region = e.S3Region
	}
	if e.S3Endpoint != "" {
		c.S3Endpoint = e.S3Endpoint
	}
	c.S3AccessKeyID = e.S3AccessKeyID
	c.S3SecretAccessKey = e.S3SecretAccessKey
	c.S3SessionToken = e.S3SessionToken
	c.AzureAccountURL = e.AzureAccountURL
	if e.LogFile != "" {
		c.LogFile = e.LogFile
	}
	c.DisableHTTP2 = c.DisableHTTP2 || e.DisableHTTP2
	c.ForceHTTP2 = c.ForceHTTP2 || e.ForceHTTP2
}

// MergeWithFlags merges config with command-line flags
// Priority: flags > environment > config file > defaults
func (c *Config) MergeWithFlags(apiBaseURL, output, proxyMode, proxyHost string, proxyPort int) {
	if apiBaseURL != "" {
		c.APIBaseURL = apiBaseURL
	}
	if output != "" {
		c.OutputDestination = output
	}
	if proxyMode != "" {
		c.ProxyMode = proxyMode
	}
	if proxyHost != "" {
		c.ProxyHost = proxyHost
	}
	if proxyPort > 0 {
		c.ProxyPort = proxyPort
	}

	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.APIBaseURL != "" && !strings.HasPrefix(c.APIBaseURL, "http") {
		c.APIBaseURL = "http://" + c.APIBaseURL
	}
}

// Load resolves the effective configuration: defaults, then the CSV file,
// then .env and process environment.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfigCSV(path)
	if err != nil {
		return nil, err
	}
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	e, err := ReadEnvironment()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvironment(e)
	return cfg, nil
}

// parseProxyURL parses a proxy URL from environment variable
func (c *Config) parseProxyURL(proxyURL string) {
	proxyURL = strings.TrimPrefix(proxyURL, "http://")
	proxyURL = strings.TrimPrefix(proxyURL, "https://")
	proxyURL = strings.TrimRight(proxyURL, "/")

	parts := strings.Split(proxyURL, ":")
	if len(parts) >= 1 {
		c.ProxyHost = parts[0]
	}
	if len(parts) >= 2 {
		if port, err := strconv.Atoi(parts[1]); err == nil {
			c.ProxyPort = port
		}
	}
	if c.ProxyHost != "" && c.ProxyMode == "no-proxy" {
		c.ProxyMode = "system"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s %q: failed %q check", fieldKey(fe.Field()), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return err
	}
	if (c.ProxyMode == "basic" || c.ProxyMode == "ntlm") && c.ProxyHost == "" {
		return fmt.Errorf("proxy_host is required for proxy mode %s", c.ProxyMode)
	}
	return nil
}

func fieldKey(field string) string {
	switch field {
	case "APIBaseURL":
		return "api_base_url"
	case "RequestTimeout":
		return "request_timeout"
	case "ProxyMode":
		return "proxy_mode"
	case "ProxyPort":
		return "proxy_port"
	}
	return field
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
