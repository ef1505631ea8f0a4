package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/symptom-kbs-mcp-server/data"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

// CLI runs the setup subcommands.
type CLI struct {
	ServerType string // "lite" or "full"
	ConfigPath string // overrides the desktop client config location
	reader     *bufio.Reader
	out        io.Writer
}

// NewCLI creates a setup CLI reading stdin and writing stdout.
func NewCLI(serverType string) *CLI {
	return NewCLIWithIO(serverType, os.Stdin, os.Stdout)
}

// NewCLIWithIO creates a setup CLI over the given streams.
func NewCLIWithIO(serverType string, in io.Reader, out io.Writer) *CLI {
	return &CLI{
		ServerType: serverType,
		reader:     bufio.NewReader(in),
		out:        out,
	}
}

// Run executes the setup command named by args[0].
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "init":
		return c.initDataDir(args[1:])
	case "register", "claude-desktop":
		return c.register(args[1:])
	case "status":
		return c.showStatus()
	case "validate":
		return c.validate()
	case "wizard":
		return c.runWizard()
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		c.printf("Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *CLI) println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

func (c *CLI) ask(prompt string) string {
	c.printf("%s", prompt)
	line, _ := c.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func (c *CLI) confirm(prompt string, def bool) bool {
	answer := strings.ToLower(c.ask(prompt))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}

func (c *CLI) showHelp() error {
	c.println(`
Symptom KBS MCP Server Setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  wizard     Interactive setup wizard (recommended for new users)
  init       Create the data directory and install the sample knowledge base
  register   Register the server with the desktop MCP client
  status     Show current setup status
  validate   Check the registration and the knowledge base

Options:
  --binary, -b <path>     server binary to register
  --data-dir, -d <path>   data directory (KBS_DATA_DIR)
  --knowledge, -k <path>  knowledge base file (KBS_KNOWLEDGE_PATH)
  --auto, -y              do not ask for confirmation

Examples:
  mcp-server-lite setup init
  mcp-server-lite setup register --binary /usr/local/bin/mcp-server-lite -y
  mcp-server-lite setup validate`)
	return nil
}

func (c *CLI) parseOptions(args []string) Options {
	opts := Options{ServerType: c.ServerType, ConfigPath: c.ConfigPath}

	for i := 0; i < len(args); i++ {
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch args[i] {
		case "--binary", "-b":
			opts.BinaryPath = next()
		case "--data-dir", "-d":
			opts.DataDir = next()
		case "--knowledge", "-k":
			opts.KnowledgePath = next()
		case "--auto", "-y":
			opts.AutoConfirm = true
		}
	}
	return opts
}

func (c *CLI) initDataDir(args []string) error {
	opts := c.parseOptions(args)
	dir := opts.DataDir
	if dir == "" {
		dir = DefaultDataDir()
	}

	written, err := InstallKnowledge(dir, data.SampleKnowledgeBase)
	if err != nil {
		return err
	}

	c.printf("Data directory: %s\n", dir)
	if written {
		c.printf("✓ Sample knowledge base installed at %s\n", filepath.Join(dir, KnowledgeFile))
	} else {
		c.printf("- Existing knowledge base kept at %s\n", filepath.Join(dir, KnowledgeFile))
	}
	return nil
}

func (c *CLI) register(args []string) error {
	opts := c.parseOptions(args)
	if opts.BinaryPath == "" {
		if exe, err := os.Executable(); err == nil {
			opts.BinaryPath = exe
		}
	}

	configPath, _ := opts.configPath()
	c.println("MCP Client Registration")
	c.println("=======================")
	c.printf("Config file: %s\n", configPath)
	c.printf("Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		c.printf("Data directory: %s\n", opts.DataDir)
	}
	if opts.KnowledgePath != "" {
		c.printf("Knowledge base: %s\n", opts.KnowledgePath)
	}
	c.println()

	if !opts.AutoConfirm && !c.confirm("Proceed with configuration? [Y/n]: ", true) {
		c.println("Configuration cancelled.")
		return nil
	}

	if _, err := Register(opts); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	c.println()
	c.println("✓ Server registered successfully!")
	c.println()
	c.println("Next steps:")
	c.println("  1. Restart the MCP client to load the new configuration")
	c.println("  2. Ask: \"What MCP tools do you have available?\"")
	c.println("  3. Try: \"I have a fever, a cough and muscle aches. What could it be?\"")
	return nil
}

func (c *CLI) showStatus() error {
	status := Inspect(Options{ServerType: c.ServerType, ConfigPath: c.ConfigPath})

	c.println("Symptom KBS MCP Server Status")
	c.println("=============================")
	c.println()
	c.printf("Client config: %s\n", status.ConfigPath)
	if status.Registered {
		c.println("  Registered: ✓")
		c.printf("  Binary: %s\n", status.ServerPath)
	} else {
		c.println("  Registered: ✗")
	}
	c.printf("Data directory: %s\n", status.DataDir)
	c.printf("Knowledge base: %s\n", status.KnowledgePath)

	for _, w := range status.Warnings {
		c.printf("  - %s\n", w)
	}
	if len(status.Issues) > 0 {
		c.println()
		c.println("Issues:")
		for _, issue := range status.Issues {
			c.printf("  ⚠ %s\n", issue)
		}
	}
	return nil
}

func (c *CLI) validate() error {
	c.println("Validating configuration...")
	c.println()

	status := Inspect(Options{ServerType: c.ServerType, ConfigPath: c.ConfigPath})
	issues := append([]string{}, status.Issues...)
	issues = append(issues, checkKnowledge(status.KnowledgePath)...)

	if len(issues) == 0 {
		c.println("✓ Configuration is valid!")
		return nil
	}

	c.println("✗ Configuration has issues:")
	for _, issue := range issues {
		c.printf("  - %s\n", issue)
	}
	return fmt.Errorf("%d setup issues found", len(issues))
}

// checkKnowledge reports schema errors in the knowledge file. A missing file
// is already reported by Inspect.
func checkKnowledge(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	doc, err := knowledge.Parse(raw, knowledge.FormatForPath(path))
	if err != nil {
		return []string{fmt.Sprintf("Knowledge base is malformed: %v", err)}
	}

	valid, errs := knowledge.ValidateSchema(doc)
	if valid {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = "Knowledge base schema: " + e
	}
	return out
}

func (c *CLI) runWizard() error {
	c.println()
	c.println("Symptom KBS MCP Server - Interactive Setup Wizard")
	c.println("=================================================")
	c.println()

	c.println("Step 1: Checking current setup...")
	status := Inspect(Options{ServerType: c.ServerType, ConfigPath: c.ConfigPath})
	if status.Registered && status.Valid() {
		c.println("✓ The server is already registered.")
		if !c.confirm("Would you like to reconfigure? [y/N]: ", false) {
			c.println()
			c.println("Setup complete. Your server is ready to use!")
			return nil
		}
	}

	c.println()
	c.println("Step 2: Data directory")
	dataDir := c.ask(fmt.Sprintf("Data directory [%s]: ", DefaultDataDir()))
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := c.initDataDir([]string{"--data-dir", dataDir}); err != nil {
		return err
	}

	c.println()
	c.println("Step 3: Register with the MCP client")
	exe, _ := os.Executable()
	binary := c.ask(fmt.Sprintf("Server binary path [%s]: ", exe))
	if binary == "" {
		binary = exe
	}
	if _, err := os.Stat(binary); os.IsNotExist(err) {
		c.printf("⚠ Warning: Binary not found at %s\n", binary)
		if !c.confirm("Continue anyway? [y/N]: ", false) {
			return fmt.Errorf("setup cancelled")
		}
	}

	if _, err := Register(Options{
		ServerType: c.ServerType,
		BinaryPath: binary,
		DataDir:    dataDir,
		ConfigPath: c.ConfigPath,
	}); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	c.println()
	c.println("Setup complete! Restart the MCP client to load the new configuration.")
	c.println("For help, run: mcp-server-lite setup --help")
	return nil
}
