package main

import (
	"os"

	"github.com/symptom-kbs-mcp-server/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
