package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/terraso"
	ConfigFileName    = "terraso.yml"
)

// ValidJWTAlgorithms lists the HMAC algorithms accepted for signing Terraso tokens.
var ValidJWTAlgorithms = []string{"HS256", "HS384", "HS512"}

// ExchangeProvider points token exchange at a provider's JWKS.
type ExchangeProvider struct {
	URL      string `yaml:"url" json:"url"`
	ClientID string `yaml:"client_id" json:"client_id"`
}

// TerrasoConfig holds the server settings.
type TerrasoConfig struct {
	WebClientURL       string   `yaml:"web_client_url" json:"web_client_url"`
	APIBaseURL         string   `yaml:"api_base_url" json:"api_base_url"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" json:"cors_allowed_origins"`

	JWTSecret                 string `yaml:"jwt_secret" json:"-"`
	JWTAlgorithm              string `yaml:"jwt_algorithm" json:"jwt_algorithm"`
	JWTAccessExpDeltaSeconds  int    `yaml:"jwt_access_exp_delta_seconds" json:"jwt_access_exp_delta_seconds"`
	JWTRefreshExpDeltaSeconds int    `yaml:"jwt_refresh_exp_delta_seconds" json:"jwt_refresh_exp_delta_seconds"`
	JWTIssuer                 string `yaml:"jwt_iss" json:"jwt_iss"`

	JWTExchangeProviders map[string]ExchangeProvider `yaml:"jwt_exchange_providers" json:"jwt_exchange_providers"`

	SoilIDServiceURL     string `yaml:"soil_id_service_url" json:"soil_id_service_url"`
	SoilIDTimeoutSeconds int    `yaml:"soil_id_timeout_seconds" json:"soil_id_timeout_seconds"`

	AWSRegion               string `yaml:"aws_region" json:"aws_region"`
	AWSEndpoint             string `yaml:"aws_endpoint" json:"aws_endpoint"`
	AWSAccessKeyID          string `yaml:"aws_access_key_id" json:"aws_access_key_id"`
	AWSSecretAccessKey      string `yaml:"aws_secret_access_key" json:"-"`
	ProfileImagesS3Bucket   string `yaml:"profile_images_s3_bucket" json:"profile_images_s3_bucket"`
	DataEntryFileS3Bucket   string `yaml:"data_entry_file_s3_bucket" json:"data_entry_file_s3_bucket"`
	StoryMapMediaS3Bucket   string `yaml:"story_map_media_s3_bucket" json:"story_map_media_s3_bucket"`
	DBBackupS3Bucket        string `yaml:"db_backup_s3_bucket" json:"db_backup_s3_bucket"`
	DataEntryFileMaxSize    int64  `yaml:"data_entry_file_max_size" json:"data_entry_file_max_size"`
	ProfileImageURLTimeoutS int    `yaml:"profile_image_url_timeout_seconds" json:"profile_image_url_timeout_seconds"`

	MapboxAPIURL      string `yaml:"mapbox_api_url" json:"mapbox_api_url"`
	MapboxUsername    string `yaml:"mapbox_username" json:"mapbox_username"`
	MapboxAccessToken string `yaml:"mapbox_access_token" json:"-"`

	EmailHost         string `yaml:"email_host" json:"email_host"`
	EmailPort         int    `yaml:"email_port" json:"email_port"`
	EmailHostUser     string `yaml:"email_host_user" json:"email_host_user"`
	EmailHostPassword string `yaml:"email_host_password" json:"-"`
	DefaultFromEmail  string `yaml:"default_from_email" json:"default_from_email"`

	LogLevel       string `yaml:"log_level" json:"log_level"`
	LogFormat      string `yaml:"log_format" json:"log_format"`
	AuditEnabled   *bool  `yaml:"audit_enabled" json:"audit_enabled"`
	MetricsEnabled *bool  `yaml:"metrics_enabled" json:"metrics_enabled"`

	sources        map[string]string
	configFilePath string
}

// Attribute is one setting with its rendered value and where it came from.
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

var (
	globalConfig *TerrasoConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it on first use.
func Get() *TerrasoConfig {
	configMu.RLock()
	if globalConfig != nil {
		defer configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = newDefault()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// Set replaces the global configuration.
func Set(cfg *TerrasoConfig) {
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
}

// Reload re-reads the file and environment and swaps the global config.
func Reload() (*TerrasoConfig, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	Set(cfg)
	return cfg, nil
}

func boolPtr(b bool) *bool { return &b }

func newDefault() *TerrasoConfig {
	return &TerrasoConfig{
		WebClientURL:              "http://localhost:3000",
		APIBaseURL:                "http://localhost:8000",
		CORSAllowedOrigins:        []string{},
		JWTAlgorithm:              "HS512",
		JWTAccessExpDeltaSeconds:  360,
		JWTRefreshExpDeltaSeconds: 3600,
		JWTIssuer:                 "https://terraso.org",
		JWTExchangeProviders:      map[string]ExchangeProvider{},
		SoilIDTimeoutSeconds:      30,
		AWSRegion:                 "us-east-2",
		DataEntryFileMaxSize:      10_000_000,
		ProfileImageURLTimeoutS:   10,
		MapboxAPIURL:              "https://api.mapbox.com",
		EmailPort:                 587,
		DefaultFromEmail:          "no-reply@terraso.org",
		LogLevel:                  "info",
		LogFormat:                 "json",
		AuditEnabled:              boolPtr(true),
		MetricsEnabled:            boolPtr(true),
		sources:                   make(map[string]string),
	}
}

// Load builds a config from defaults, then the YAML file, then TERRASO_* variables.
func Load() (*TerrasoConfig, error) {
	cfg := newDefault()
	for _, name := range attributeNames {
		cfg.sources[name] = "default"
	}

	configPath := os.Getenv("TERRASO_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(cfg.configFilePath); err == nil {
		var fileConfig TerrasoConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", cfg.configFilePath, err)
		}
		cfg.applyFileConfig(&fileConfig)
	}

	if err := cfg.applyEnvConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var attributeNames = []string{
	"web_client_url", "api_base_url", "cors_allowed_origins",
	"jwt_secret", "jwt_algorithm", "jwt_access_exp_delta_seconds",
	"jwt_refresh_exp_delta_seconds", "jwt_iss", "jwt_exchange_providers",
	"soil_id_service_url", "soil_id_timeout_seconds",
	"aws_region", "aws_endpoint", "aws_access_key_id", "aws_secret_access_key",
	"profile_images_s3_bucket", "data_entry_file_s3_bucket",
	"story_map_media_s3_bucket", "db_backup_s3_bucket",
	"data_entry_file_max_size", "profile_image_url_timeout_seconds",
	"mapbox_api_url", "mapbox_username", "mapbox_access_token",
	"email_host", "email_port", "email_host_user", "email_host_password",
	"default_from_email", "log_level", "log_format", "audit_enabled",
	"metrics_enabled",
}

func (c *TerrasoConfig) setString(name string, dst *string, val, source string) {
	if val == "" {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *TerrasoConfig) setInt(name string, dst *int, val int, source string) {
	if val == 0 {
		return
	}
	*dst = val
	c.sources[name] = source
}

func (c *TerrasoConfig) applyFileConfig(file *TerrasoConfig) {
	const src = "file"
	c.setString("web_client_url", &c.WebClientURL, file.WebClientURL, src)
	c.setString("api_base_url", &c.APIBaseURL, file.APIBaseURL, src)
	if len(file.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = file.CORSAllowedOrigins
		c.sources["cors_allowed_origins"] = src
	}
	c.setString("jwt_secret", &c.JWTSecret, file.JWTSecret, src)
	c.setString("jwt_algorithm", &c.JWTAlgorithm, file.JWTAlgorithm, src)
	c.setInt("jwt_access_exp_delta_seconds", &c.JWTAccessExpDeltaSeconds, file.JWTAccessExpDeltaSeconds, src)
	c.setInt("jwt_refresh_exp_delta_seconds", &c.JWTRefreshExpDeltaSeconds, file.JWTRefreshExpDeltaSeconds, src)
	c.setString("jwt_iss", &c.JWTIssuer, file.JWTIssuer, src)
	if len(file.JWTExchangeProviders) > 0 {
		c.JWTExchangeProviders = file.JWTExchangeProviders
		c.sources["jwt_exchange_providers"] = src
	}
	c.setString("soil_id_service_url", &c.SoilIDServiceURL, file.SoilIDServiceURL, src)
	c.setInt("soil_id_timeout_seconds", &c.SoilIDTimeoutSeconds, file.SoilIDTimeoutSeconds, src)
	c.setString("aws_region", &c.AWSRegion, file.AWSRegion, src)
	c.setString("aws_endpoint", &c.AWSEndpoint, file.AWSEndpoint, src)
	c.setString("aws_access_key_id", &c.AWSAccessKeyID, file.AWSAccessKeyID, src)
	c.setString("aws_secret_access_key", &c.AWSSecretAccessKey, file.AWSSecretAccessKey, src)
	c.setString("profile_images_s3_bucket", &c.ProfileImagesS3Bucket, file.ProfileImagesS3Bucket, src)
	c.setString("data_entry_file_s3_bucket", &c.DataEntryFileS3Bucket, file.DataEntryFileS3Bucket, src)
	c.setString("story_map_media_s3_bucket", &c.StoryMapMediaS3Bucket, file.StoryMapMediaS3Bucket, src)
	c.setString("db_backup_s3_bucket", &c.DBBackupS3Bucket, file.DBBackupS3Bucket, src)
	c.setString("mapbox_api_url", &c.MapboxAPIURL, file.MapboxAPIURL, src)
	c.setString("mapbox_username", &c.MapboxUsername, file.MapboxUsername, src)
	c.setString("mapbox_access_token", &c.MapboxAccessToken, file.MapboxAccessToken, src)
	if file.DataEntryFileMaxSize != 0 {
		c.DataEntryFileMaxSize = file.DataEntryFileMaxSize
		c.sources["data_entry_file_max_size"] = src
	}
	c.setInt("profile_image_url_timeout_seconds", &c.ProfileImageURLTimeoutS, file.ProfileImageURLTimeoutS, src)
	c.setString("email_host", &c.EmailHost, file.EmailHost, src)
	c.setInt("email_port", &c.EmailPort, file.EmailPort, src)
	c.setString("email_host_user", &c.EmailHostUser, file.EmailHostUser, src)
	c.setString("email_host_password", &c.EmailHostPassword, file.EmailHostPassword, src)
	c.setString("default_from_email", &c.DefaultFromEmail, file.DefaultFromEmail, src)
	c.setString("log_level", &c.LogLevel, file.LogLevel, src)
	c.setString("log_format", &c.LogFormat, file.LogFormat, src)
	if file.AuditEnabled != nil {
		c.AuditEnabled = file.AuditEnabled
		c.sources["audit_enabled"] = src
	}
	if file.MetricsEnabled != nil {
		c.MetricsEnabled = file.MetricsEnabled
		c.sources["metrics_enabled"] = src
	}
}

func envName(attr string) string {
	return "TERRASO_" + strings.ToUpper(attr)
}

func (c *TerrasoConfig) applyEnvConfig() error {
	const src = "environment"
	str := func(name string, dst *string) {
		c.setString(name, dst, os.Getenv(envName(name)), src)
	}
	num := func(name string, dst *int) {
		if val := os.Getenv(envName(name)); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				c.setInt(name, dst, i, src)
			}
		}
	}
	flag := func(name string, dst **bool) {
		if val := os.Getenv(envName(name)); val != "" {
			*dst = boolPtr(val == "true" || val == "1" || val == "yes")
			c.sources[name] = src
		}
	}

	str("web_client_url", &c.WebClientURL)
	str("api_base_url", &c.APIBaseURL)
	if val := os.Getenv(envName("cors_allowed_origins")); val != "" {
		c.CORSAllowedOrigins = splitAndTrim(val)
		c.sources["cors_allowed_origins"] = src
	}
	str("jwt_secret", &c.JWTSecret)
	str("jwt_algorithm", &c.JWTAlgorithm)
	num("jwt_access_exp_delta_seconds", &c.JWTAccessExpDeltaSeconds)
	num("jwt_refresh_exp_delta_seconds", &c.JWTRefreshExpDeltaSeconds)
	str("jwt_iss", &c.JWTIssuer)
	if val := os.Getenv(envName("jwt_exchange_providers")); val != "" {
		providers := map[string]ExchangeProvider{}
		if err := json.Unmarshal([]byte(val), &providers); err != nil {
			return fmt.Errorf("invalid %s: %w", envName("jwt_exchange_providers"), err)
		}
		c.JWTExchangeProviders = providers
		c.sources["jwt_exchange_providers"] = src
	}
	str("soil_id_service_url", &c.SoilIDServiceURL)
	num("soil_id_timeout_seconds", &c.SoilIDTimeoutSeconds)
	str("aws_region", &c.AWSRegion)
	str("aws_endpoint", &c.AWSEndpoint)
	str("aws_access_key_id", &c.AWSAccessKeyID)
	str("aws_secret_access_key", &c.AWSSecretAccessKey)
	str("profile_images_s3_bucket", &c.ProfileImagesS3Bucket)
	str("data_entry_file_s3_bucket", &c.DataEntryFileS3Bucket)
	str("story_map_media_s3_bucket", &c.StoryMapMediaS3Bucket)
	str("db_backup_s3_bucket", &c.DBBackupS3Bucket)
	if val := os.Getenv(envName("data_entry_file_max_size")); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil && i > 0 {
			c.DataEntryFileMaxSize = i
			c.sources["data_entry_file_max_size"] = src
		}
	}
	num("profile_image_url_timeout_seconds", &c.ProfileImageURLTimeoutS)
	str("mapbox_api_url", &c.MapboxAPIURL)
	str("mapbox_username", &c.MapboxUsername)
	str("mapbox_access_token", &c.MapboxAccessToken)
	str("email_host", &c.EmailHost)
	num("email_port", &c.EmailPort)
	str("email_host_user", &c.EmailHostUser)
	str("email_host_password", &c.EmailHostPassword)
	str("default_from_email", &c.DefaultFromEmail)
	str("log_level", &c.LogLevel)
	str("log_format", &c.LogFormat)
	flag("audit_enabled", &c.AuditEnabled)
	flag("metrics_enabled", &c.MetricsEnabled)
	return nil
}

// ConfigFilePath returns the YAML file this config was (or would be) read from.
func (c *TerrasoConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns default, file or environment for an attribute.
func (c *TerrasoConfig) Source(name string) string {
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

func (c *TerrasoConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTAccessExpDeltaSeconds) * time.Second
}

func (c *TerrasoConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.JWTRefreshExpDeltaSeconds) * time.Second
}

func (c *TerrasoConfig) SoilIDTimeout() time.Duration {
	return time.Duration(c.SoilIDTimeoutSeconds) * time.Second
}

func (c *TerrasoConfig) IsAuditEnabled() bool {
	return c.AuditEnabled == nil || *c.AuditEnabled
}

func (c *TerrasoConfig) IsMetricsEnabled() bool {
	return c.MetricsEnabled == nil || *c.MetricsEnabled
}

// ProfileImagesBaseURL is the public URL prefix of uploaded profile images.
func (c *TerrasoConfig) ProfileImagesBaseURL() string {
	return "https://" + c.ProfileImagesS3Bucket
}

// DataEntryFileBaseURL is the public URL prefix of uploaded data entry files.
func (c *TerrasoConfig) DataEntryFileBaseURL() string {
	return "https://" + c.DataEntryFileS3Bucket
}

// StoryMapMediaBaseURL is the public URL prefix of story map media.
func (c *TerrasoConfig) StoryMapMediaBaseURL() string {
	return "https://" + c.StoryMapMediaS3Bucket
}

// ProfileImageURLTimeout bounds the download of a provider's profile picture.
func (c *TerrasoConfig) ProfileImageURLTimeout() time.Duration {
	return time.Duration(c.ProfileImageURLTimeoutS) * time.Second
}

// IsAllowedOrigin reports whether origin is the web client or a configured CORS origin.
func (c *TerrasoConfig) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if strings.TrimRight(origin, "/") == strings.TrimRight(c.WebClientURL, "/") {
		return true
	}
	for _, allowed := range c.CORSAllowedOrigins {
		if allowed == "*" || strings.TrimRight(allowed, "/") == strings.TrimRight(origin, "/") {
			return true
		}
	}
	return false
}

// Validate checks values that would otherwise fail late at request time.
func (c *TerrasoConfig) Validate() error {
	valid := false
	for _, alg := range ValidJWTAlgorithms {
		if c.JWTAlgorithm == alg {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid jwt_algorithm: %s", c.JWTAlgorithm)
	}
	if c.JWTAccessExpDeltaSeconds <= 0 || c.JWTRefreshExpDeltaSeconds <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	for name, raw := range map[string]string{
		"web_client_url":      c.WebClientURL,
		"api_base_url":        c.APIBaseURL,
		"soil_id_service_url": c.SoilIDServiceURL,
		"mapbox_api_url":      c.MapboxAPIURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	for name, p := range c.JWTExchangeProviders {
		if p.URL == "" || p.ClientID == "" {
			return fmt.Errorf("provider %s is missing config variables", name)
		}
	}
	if c.DataEntryFileMaxSize <= 0 {
		return fmt.Errorf("data_entry_file_max_size must be positive")
	}
	return nil
}

func masked(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// Attributes lists every setting with its source. Secrets are masked.
func (c *TerrasoConfig) Attributes() []Attribute {
	providers := make([]string, 0, len(c.JWTExchangeProviders))
	for name := range c.JWTExchangeProviders {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	values := map[string]string{
		"web_client_url":                    c.WebClientURL,
		"api_base_url":                      c.APIBaseURL,
		"cors_allowed_origins":              strings.Join(c.CORSAllowedOrigins, ","),
		"jwt_secret":                        masked(c.JWTSecret),
		"jwt_algorithm":                     c.JWTAlgorithm,
		"jwt_access_exp_delta_seconds":      strconv.Itoa(c.JWTAccessExpDeltaSeconds),
		"jwt_refresh_exp_delta_seconds":     strconv.Itoa(c.JWTRefreshExpDeltaSeconds),
		"jwt_iss":                           c.JWTIssuer,
		"jwt_exchange_providers":            strings.Join(providers, ","),
		"soil_id_service_url":               c.SoilIDServiceURL,
		"soil_id_timeout_seconds":           strconv.Itoa(c.SoilIDTimeoutSeconds),
		"aws_region":                        c.AWSRegion,
		"aws_endpoint":                      c.AWSEndpoint,
		"aws_access_key_id":                 c.AWSAccessKeyID,
		"aws_secret_access_key":             masked(c.AWSSecretAccessKey),
		"profile_images_s3_bucket":          c.ProfileImagesS3Bucket,
		"data_entry_file_s3_bucket":         c.DataEntryFileS3Bucket,
		"story_map_media_s3_bucket":         c.StoryMapMediaS3Bucket,
		"db_backup_s3_bucket":               c.DBBackupS3Bucket,
		"data_entry_file_max_size":          strconv.FormatInt(c.DataEntryFileMaxSize, 10),
		"profile_image_url_timeout_seconds": strconv.Itoa(c.ProfileImageURLTimeoutS),
		"mapbox_api_url":                    c.MapboxAPIURL,
		"mapbox_username":                   c.MapboxUsername,
		"mapbox_access_token":               masked(c.MapboxAccessToken),
		"email_host":                        c.EmailHost,
		"email_port":                        strconv.Itoa(c.EmailPort),
		"email_host_user":                   c.EmailHostUser,
		"email_host_password":               masked(c.EmailHostPassword),
		"default_from_email":                c.DefaultFromEmail,
		"log_level":                         c.LogLevel,
		"log_format":                        c.LogFormat,
		"audit_enabled":                     strconv.FormatBool(c.IsAuditEnabled()),
		"metrics_enabled":                   strconv.FormatBool(c.IsMetricsEnabled()),
	}

	attrs := make([]Attribute, 0, len(attributeNames))
	for _, name := range attributeNames {
		attrs = append(attrs, Attribute{Name: name, Value: values[name], Source: c.Source(name)})
	}
	return attrs
}

// FormatText renders Attributes as an aligned table.
func (c *TerrasoConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-36s %-36s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-36s %-36s %s\n", "----", "-----", "------"))
	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-36s %-36s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON renders Attributes as indented JSON.
func (c *TerrasoConfig) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
