package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"network-monitor/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

const (
	DefaultConnectTimeout   = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCloseTimeout     = 5 * time.Second
)

// knownProtocols mirrors the codecs registered in src/protocols.
var knownProtocols = map[string]bool{"raw": true, "stomp": true}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the reference timeouts.
func (c *Config) ApplyDefaults() {
	if c.GRPC_Host == "" {
		c.GRPC_Host = "127.0.0.1"
	}
	for _, endpoint := range c.Endpoints {
		if endpoint == nil {
			continue
		}
		ApplyEndpointDefaults(endpoint)
	}
	if c.NATS.Serializer == "" {
		c.NATS.Serializer = "json"
	}
	if c.NATS.ClientID == "" {
		c.NATS.ClientID = c.Name
	}
}

// -----------------------------------------------------------------------------

// ApplyEndpointDefaults fills the zero values of a single endpoint.
func ApplyEndpointDefaults(endpoint *models.MEndpointConfig) {
	if endpoint.Path == "" {
		endpoint.Path = "/"
	}
	if endpoint.Protocol == "" {
		endpoint.Protocol = "raw"
	}
	if endpoint.Port == "" {
		if endpoint.TLS {
			endpoint.Port = "443"
		} else {
			endpoint.Port = "80"
		}
	}
	cc := &endpoint.ConnectionConfig
	if cc.ConnectTimeout == 0 {
		cc.ConnectTimeout = DefaultConnectTimeout
	}
	if cc.HandshakeTimeout == 0 {
		cc.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cc.CloseTimeout == 0 {
		cc.CloseTimeout = DefaultCloseTimeout
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation and checks NATS/Endpoints sub-configs.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config name cannot be empty")
	}

	if c.GRPC_Port <= 1024 || c.GRPC_Port > 65535 {
		return fmt.Errorf("invalid gRPC port number: %d (must be between 1025 and 65535)", c.GRPC_Port)
	}

	// Validate Endpoints
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint must be configured")
	}
	seen := make(map[string]bool, len(c.Endpoints))
	for i, endpoint := range c.Endpoints {
		if endpoint == nil {
			return fmt.Errorf("endpoint %d: empty definition", i)
		}
		if err := ValidateEndpoint(endpoint); err != nil {
			return fmt.Errorf("endpoint %d: %w", i, err)
		}
		if seen[endpoint.Name] {
			return fmt.Errorf("endpoint '%s': duplicate name", endpoint.Name)
		}
		seen[endpoint.Name] = true
	}

	if c.Layout != nil && c.Layout.URL != "" && c.Layout.Destination == "" {
		return fmt.Errorf("layout: destination cannot be empty when url is set")
	}

	// Validation of NATS config (minimal check)
	if c.NATS.Enabled && len(c.NATS.Servers) == 0 {
		return fmt.Errorf("NATS servers list cannot be empty")
	}
	if c.NATS.Serializer != "json" && c.NATS.Serializer != "gob" {
		return fmt.Errorf("NATS serializer '%s' is not supported", c.NATS.Serializer)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ValidateEndpoint checks a single endpoint definition.
func ValidateEndpoint(endpoint *models.MEndpointConfig) error {
	if endpoint.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if endpoint.Host == "" {
		return fmt.Errorf("'%s': host cannot be empty", endpoint.Name)
	}
	if n, err := strconv.Atoi(endpoint.Port); err == nil && (n <= 0 || n > 65535) {
		return fmt.Errorf("'%s': invalid port %s", endpoint.Name, endpoint.Port)
	}
	if !strings.HasPrefix(endpoint.Path, "/") {
		return fmt.Errorf("'%s': path must start with '/'", endpoint.Name)
	}
	if endpoint.TLS && endpoint.CACertFile == "" {
		return fmt.Errorf("'%s': ca_cert_file is required for tls endpoints", endpoint.Name)
	}
	if !knownProtocols[endpoint.Protocol] {
		return fmt.Errorf("'%s': unknown protocol '%s'", endpoint.Name, endpoint.Protocol)
	}
	return nil
}

// -----------------------------------------------------------------------------

// GetEndpointByName returns a single endpoint by name
func (c *Config) GetEndpointByName(name string) *models.MEndpointConfig {
	for _, endpoint := range c.Endpoints {
		if endpoint.Name == name {
			return endpoint
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// GetEndpointsByProtocol returns endpoint configurations by protocol
func (c *Config) GetEndpointsByProtocol(protocol string) []models.MEndpointConfig {
	var result []models.MEndpointConfig
	for _, endpoint := range c.Endpoints {
		if endpoint.Protocol == protocol {
			result = append(result, *endpoint)
		}
	}
	return result
}
