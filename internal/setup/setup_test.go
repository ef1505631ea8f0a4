package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-kbs-mcp-server/data"
)

func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp-server-lite")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestRegister_PreservesOtherServersAndKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{
  "theme": "dark",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0644))

	binary := fakeBinary(t)
	entry, err := Register(Options{
		BinaryPath:    binary,
		DataDir:       "/data/kbs",
		KnowledgePath: "/data/kbs/custom.yaml",
		ConfigPath:    configPath,
	})
	require.NoError(t, err)
	assert.Equal(t, binary, entry.Command)

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "dark", saved["theme"])

	cfg, err := LoadClientConfig(configPath)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "other")
	assert.Equal(t, map[string]string{
		"KBS_DATA_DIR":       "/data/kbs",
		"KBS_KNOWLEDGE_PATH": "/data/kbs/custom.yaml",
	}, cfg.MCPServers[ServerName].Env)
}

func TestLoadClientConfig_Missing(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.json"))

	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoadClientConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := LoadClientConfig(path)

	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestInspect(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	dataDir := t.TempDir()

	status := Inspect(Options{ConfigPath: configPath})
	assert.False(t, status.Registered)
	assert.False(t, status.Valid())

	_, err := Register(Options{BinaryPath: fakeBinary(t), DataDir: dataDir, ConfigPath: configPath})
	require.NoError(t, err)

	status = Inspect(Options{ConfigPath: configPath})
	assert.True(t, status.Registered)
	assert.Equal(t, dataDir, status.DataDir)
	assert.Contains(t, status.Issues, "Knowledge base not found: "+filepath.Join(dataDir, KnowledgeFile))

	written, err := InstallKnowledge(dataDir, data.SampleKnowledgeBase)
	require.NoError(t, err)
	assert.True(t, written)

	status = Inspect(Options{ConfigPath: configPath})
	assert.True(t, status.Valid(), status.Issues)
}

func TestInstallKnowledge_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, KnowledgeFile)
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0644))

	written, err := InstallKnowledge(dir, data.SampleKnowledgeBase)

	require.NoError(t, err)
	assert.False(t, written)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "mine", string(content))
	assert.DirExists(t, filepath.Join(dir, "exports"))
}

func TestCLI_InitRegisterValidate(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	dataDir := filepath.Join(t.TempDir(), "kbs")
	binary := fakeBinary(t)

	var out bytes.Buffer
	cli := NewCLIWithIO("lite", strings.NewReader(""), &out)
	cli.ConfigPath = configPath

	require.NoError(t, cli.Run([]string{"init", "--data-dir", dataDir}))
	assert.Contains(t, out.String(), "Sample knowledge base installed")

	require.NoError(t, cli.Run([]string{"register", "-b", binary, "-d", dataDir, "-y"}))
	assert.Contains(t, out.String(), "Server registered successfully")

	out.Reset()
	require.NoError(t, cli.Run([]string{"validate"}))
	assert.Contains(t, out.String(), "Configuration is valid")
}

func TestCLI_ValidateReportsSchemaErrors(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, KnowledgeFile), []byte(`{"diseases": []}`), 0644))
	_, err := Register(Options{BinaryPath: fakeBinary(t), DataDir: dataDir, ConfigPath: configPath})
	require.NoError(t, err)

	var out bytes.Buffer
	cli := NewCLIWithIO("lite", strings.NewReader(""), &out)
	cli.ConfigPath = configPath

	err = cli.Run([]string{"validate"})

	require.Error(t, err)
	assert.Contains(t, out.String(), "Knowledge base schema: missing top-level key: metadata")
}

func TestCLI_RegisterCancelled(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	var out bytes.Buffer
	cli := NewCLIWithIO("lite", strings.NewReader("n\n"), &out)
	cli.ConfigPath = configPath

	require.NoError(t, cli.Run([]string{"register", "-b", fakeBinary(t)}))

	assert.Contains(t, out.String(), "Configuration cancelled.")
	assert.NoFileExists(t, configPath)
}

func TestCLI_UnknownCommandShowsHelp(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLIWithIO("lite", strings.NewReader(""), &out)

	require.NoError(t, cli.Run([]string{"frobnicate"}))

	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.Contains(t, out.String(), "Usage:")
}
