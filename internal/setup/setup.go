// Package setup registers the lite MCP server with desktop MCP clients and
// prepares its data directory.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under in the client config.
const ServerName = "symptom-kbs"

// ClientConfig is the desktop client configuration file. Unknown top-level
// keys are preserved on save.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// ServerEntry launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls registration.
type Options struct {
	ServerType    string // "lite" or "full"
	BinaryPath    string
	DataDir       string
	KnowledgePath string
	ConfigPath    string // client config file; empty means the platform default
	AutoConfirm   bool
}

// DesktopConfigPath returns the platform location of the desktop client config.
func DesktopConfigPath() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		dir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(dir, "claude_desktop_config.json"), nil
}

func (o Options) configPath() (string, error) {
	if o.ConfigPath != "" {
		return o.ConfigPath, nil
	}
	return DesktopConfigPath()
}

// LoadClientConfig reads the client config. A missing file yields an empty one.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = map[string]ServerEntry{}
		}
		delete(raw, "mcpServers")
	}
	cfg.extra = raw

	return cfg, nil
}

// SaveClientConfig writes cfg to path, creating the directory.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the symptom-kbs entry in the client config and
// returns the entry written.
func Register(opts Options) (ServerEntry, error) {
	path, err := opts.configPath()
	if err != nil {
		return ServerEntry{}, err
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		return ServerEntry{}, err
	}

	binary := opts.BinaryPath
	if binary == "" {
		if binary, err = findBinary(opts.ServerType); err != nil {
			return ServerEntry{}, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := ServerEntry{Command: binary, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["KBS_DATA_DIR"] = opts.DataDir
	}
	if opts.KnowledgePath != "" {
		entry.Env["KBS_KNOWLEDGE_PATH"] = opts.KnowledgePath
	}
	cfg.MCPServers[ServerName] = entry

	return entry, SaveClientConfig(path, cfg)
}

func findBinary(serverType string) (string, error) {
	name := "mcp-server-lite"
	if serverType == "full" {
		name = "mcp-server"
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, loc := range []string{
		"./" + name,
		"./build/" + name,
		filepath.Join(home, ".local", "bin", name),
		"/usr/local/bin/" + name,
	} {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary %q not found in common locations", name)
}

// Status describes the current registration.
type Status struct {
	ConfigPath    string
	Registered    bool
	ServerPath    string
	DataDir       string
	KnowledgePath string
	Issues        []string
	Warnings      []string
}

// Inspect reports how the server is registered and whether the files it
// needs exist.
func Inspect(opts Options) *Status {
	status := &Status{Issues: []string{}, Warnings: []string{}}

	path, err := opts.configPath()
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not determine client config path: %v", err))
		return status
	}
	status.ConfigPath = path

	cfg, err := LoadClientConfig(path)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
		return status
	}

	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "symptom-kbs is not registered with the MCP client")
	} else {
		status.Registered = true
		status.ServerPath = entry.Command
		status.DataDir = entry.Env["KBS_DATA_DIR"]
		status.KnowledgePath = entry.Env["KBS_KNOWLEDGE_PATH"]

		if info, err := os.Stat(entry.Command); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
		} else if info.Mode()&0111 == 0 {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
		}
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	if status.KnowledgePath == "" {
		status.KnowledgePath = filepath.Join(status.DataDir, KnowledgeFile)
	}

	if _, err := os.Stat(status.DataDir); err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	}
	if _, err := os.Stat(status.KnowledgePath); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Knowledge base not found: %s", status.KnowledgePath))
	}

	return status
}

// Valid reports whether the setup has no blocking issues.
func (s *Status) Valid() bool {
	return len(s.Issues) == 0
}

// KnowledgeFile is the knowledge base file name inside the data directory.
const KnowledgeFile = "knowledge_base.json"

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".symptom-kbs")
}

// EnsureDataDir creates the data directory and its exports subdirectory.
func EnsureDataDir(dataDir string) error {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "exports"), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// InstallKnowledge writes document as the data directory's knowledge base
// unless one already exists. It reports whether a file was written.
func InstallKnowledge(dataDir string, document []byte) (bool, error) {
	if err := EnsureDataDir(dataDir); err != nil {
		return false, err
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	path := filepath.Join(dataDir, KnowledgeFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create knowledge base: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(document); err != nil {
		return false, fmt.Errorf("failed to write knowledge base: %w", err)
	}
	return true, nil
}
