package catalog

import (
	"os"
	"time"
)

const (
	// EndpointEnvVarName configures the capability server location: an HTTP
	// URL for the streamable or SSE transports, or a command line for stdio.
	EndpointEnvVarName = "AGENTGRAPH_MCP_ENDPOINT"
	// TransportEnvVarName selects the transport: stdio|sse|streamable.
	TransportEnvVarName = "AGENTGRAPH_MCP_TRANSPORT"
	// DiscoveryTimeoutEnvVarName overrides the discovery timeout,
	// in Go duration format.
	DiscoveryTimeoutEnvVarName = "AGENTGRAPH_DISCOVERY_TIMEOUT"

	// DefaultDiscoveryTimeout bounds the first-use discovery round trip.
	DefaultDiscoveryTimeout = 30 * time.Second
	// DefaultCallTimeout bounds a single remote tool invocation.
	DefaultCallTimeout = 60 * time.Second
)

// Config describes how to reach the capability server.
type Config struct {
	// Endpoint is the server URL, or the command line for the stdio transport.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// Transport is one of stdio|sse|streamable. Defaults to streamable for
	// HTTP endpoints and stdio otherwise.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
	// DiscoveryTimeout bounds the tool listing round trip.
	DiscoveryTimeout time.Duration `json:"discovery_timeout,omitempty" yaml:"discovery_timeout,omitempty"`
	// CallTimeout bounds a single remote tool call.
	CallTimeout time.Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
}

// ConfigFromEnv builds a config from the process environment.
func ConfigFromEnv() *Config {
	cfg := &Config{
		Endpoint:         os.Getenv(EndpointEnvVarName),
		Transport:        os.Getenv(TransportEnvVarName),
		DiscoveryTimeout: DefaultDiscoveryTimeout,
		CallTimeout:      DefaultCallTimeout,
	}
	if v := os.Getenv(DiscoveryTimeoutEnvVarName); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DiscoveryTimeout = d
		}
	}
	return cfg
}

func (c *Config) discoveryTimeout() time.Duration {
	if c != nil && c.DiscoveryTimeout > 0 {
		return c.DiscoveryTimeout
	}
	return DefaultDiscoveryTimeout
}

func (c *Config) callTimeout() time.Duration {
	if c != nil && c.CallTimeout > 0 {
		return c.CallTimeout
	}
	return DefaultCallTimeout
}
