package config

import (
	"strings"
	"testing"
)

func TestLoadFromReaderValid(t *testing.T) {
	doc := `
name: my-gateway
version: "1.0"
server:
  listen_addr: ":8080"
  log_level: info
backend:
  kind: local
mcp:
  servers:
    - name: files
      transport: stdio
      command: "npx -y @modelcontextprotocol/server-filesystem /tmp"
    - name: remote
      transport: streamable-http
      url: "https://example.com/mcp"
      auth:
        env: REMOTE_MCP_TOKEN
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Name != "my-gateway" {
		t.Errorf("got name %q", cfg.Name)
	}
	if len(cfg.MCP.Servers) != 2 {
		t.Fatalf("got %d servers", len(cfg.MCP.Servers))
	}
	if cfg.MCP.Servers[1].Auth == nil || cfg.MCP.Servers[1].Auth.Env != "REMOTE_MCP_TOKEN" {
		t.Errorf("expected auth env ref on remote server, got %+v", cfg.MCP.Servers[1].Auth)
	}
}

func TestValidateRejectsBadTransport(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		MCP: MCPConfig{Servers: []MCPServerConfig{
			{Name: "bad", Transport: "carrier-pigeon"},
		}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for invalid transport")
	}
}

func TestValidateRequiresCommandForStdio(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		MCP: MCPConfig{Servers: []MCPServerConfig{
			{Name: "files", Transport: "stdio"},
		}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing command")
	}
}

func TestValidateRequiresURLForStreamableHTTP(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		MCP: MCPConfig{Servers: []MCPServerConfig{
			{Name: "remote", Transport: "streamable-http"},
		}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing url")
	}
}

func TestValidateRequiresPostgresDSNWhenBackendIsPostgres(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{ListenAddr: ":8080"},
		Backend: BackendConfig{Kind: "postgres"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing postgres dsn")
	}
}

func TestValidateRejectsBadBackendKind(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{ListenAddr: ":8080"},
		Backend: BackendConfig{Kind: "memcached"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for invalid backend kind")
	}
}

func TestValidateRejectsDuplicateServerNames(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		MCP: MCPConfig{Servers: []MCPServerConfig{
			{Name: "files", Transport: "stdio", Command: "a"},
			{Name: "files", Transport: "stdio", Command: "b"},
		}},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for duplicate server names")
	}
}

func TestValidateRequiresListenAddr(t *testing.T) {
	cfg := &Config{}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing listen_addr")
	}
}
