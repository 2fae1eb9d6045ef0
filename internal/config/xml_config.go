// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/trendlog-viewer/backend/internal/parser"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"TrendLogViewer"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Log buffer decoding
	Decoder DecoderConfig `xml:"Decoder"`

	// Export formats
	Export ExportConfig `xml:"Export"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	CapturesDirectory string `xml:"CapturesDirectory"`
	DatabaseDirectory string `xml:"DatabaseDirectory"`
	EnablePersistence bool   `xml:"EnablePersistence"`
}

// DecoderConfig describes how devices encode their log buffer timestamps.
type DecoderConfig struct {
	FractionResolution string `xml:"FractionResolution"` // hundredths | milliseconds
	OrderPolicy        string `xml:"OrderPolicy"`        // passthrough | reject
	StrictDayOfWeek    bool   `xml:"StrictDayOfWeek"`
	Location           string `xml:"Location"` // IANA zone of the device clock
}

// ExportConfig contains export settings
type ExportConfig struct {
	DefaultFormat  string `xml:"DefaultFormat"`
	MeboMetricName string `xml:"MeboMetricName"` // empty uses the trend log identifier
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			CapturesDirectory: "./data/captures",
			DatabaseDirectory: "./data/db",
			EnablePersistence: true,
		},
		Decoder: DecoderConfig{
			FractionResolution: "hundredths",
			OrderPolicy:        "passthrough",
			StrictDayOfWeek:    false,
			Location:           "UTC",
		},
		Export: ExportConfig{
			DefaultFormat: "json",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        4,
			DuckDBMemoryLimit:    "1GB",
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Trend Log Viewer Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if dbDir := os.Getenv("TRENDLOG_DB_PATH"); dbDir != "" {
		c.Storage.DatabaseDirectory = dbDir
	}

	if res := os.Getenv("TRENDLOG_FRACTION_RESOLUTION"); res != "" {
		c.Decoder.FractionResolution = res
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.CapturesDirectory,
		&c.Storage.DatabaseDirectory,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate checks the values that are parsed lazily elsewhere.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := c.DecoderOptions(); err != nil {
		return err
	}
	return nil
}

// DecoderOptions converts the Decoder section into parser options.
func (c *AppConfig) DecoderOptions() ([]parser.DecoderOption, error) {
	res, err := parser.ParseFractionResolution(c.Decoder.FractionResolution)
	if err != nil {
		return nil, fmt.Errorf("decoder config: %w", err)
	}
	order, err := parser.ParseOrderPolicy(c.Decoder.OrderPolicy)
	if err != nil {
		return nil, fmt.Errorf("decoder config: %w", err)
	}

	opts := []parser.DecoderOption{
		parser.WithFractionResolution(res),
		parser.WithOrderPolicy(order),
		parser.WithStrictDayOfWeek(c.Decoder.StrictDayOfWeek),
	}
	if c.Decoder.Location != "" {
		loc, err := time.LoadLocation(c.Decoder.Location)
		if err != nil {
			return nil, fmt.Errorf("decoder config: invalid location %q: %w", c.Decoder.Location, err)
		}
		opts = append(opts, parser.WithLocation(loc))
	}
	return opts, nil
}

// DuckOptions returns the DuckDB tuning of the Advanced section.
func (c *AppConfig) DuckOptions() parser.DuckOptions {
	return parser.DuckOptions{
		Threads:     c.Advanced.DuckDBThreads,
		MemoryLimit: c.Advanced.DuckDBMemoryLimit,
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.CapturesDirectory,
		c.Storage.DatabaseDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
