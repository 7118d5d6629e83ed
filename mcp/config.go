// MCP server configuration file support.
//
// Supports Anthropic-style MCP configuration format:
//
//	{
//	  "mcpServers": {
//	    "brave-search": {
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-brave-search"],
//	      "env": {"BRAVE_API_KEY": "${BRAVE_API_KEY}"}
//	    }
//	  }
//	}
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Config represents the MCP configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig represents a single MCP server configuration.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// LoadConfig loads MCP configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Server returns the named server. An empty name selects the only server
// when exactly one is configured.
func (c *Config) Server(name string) (ServerConfig, error) {
	if name == "" {
		if len(c.MCPServers) == 1 {
			for _, s := range c.MCPServers {
				return s, nil
			}
		}
		return ServerConfig{}, fmt.Errorf("MCP server name required, configured: %v", c.Names())
	}
	s, ok := c.MCPServers[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("MCP server %q not configured, available: %v", name, c.Names())
	}
	return s, nil
}

// Names returns the configured server names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
