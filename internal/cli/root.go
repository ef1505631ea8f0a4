// Package cli implements kbsctl, the command line tool for checking, querying
// and editing a knowledge base file.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/internal/logging"
	"github.com/symptom-kbs-mcp-server/internal/service"
)

const defaultKnowledgePath = "data/knowledge_base.json"

type options struct {
	kbPath   string
	logLevel string
	asJSON   bool
}

// NewRootCommand builds the kbsctl command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "kbsctl",
		Short: "Inspect, query and edit a symptom knowledge base",
		Long: `kbsctl works directly on a knowledge base file (JSON or YAML).

It validates documents, runs the same diagnosis the servers run, and edits
diseases, rules and symptoms in place.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := os.Getenv("KBS_KNOWLEDGE_PATH")
	if defaultPath == "" {
		defaultPath = defaultKnowledgePath
	}
	root.PersistentFlags().StringVarP(&opts.kbPath, "kb", "k", defaultPath, "knowledge base file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level written to stderr")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newValidateCommand(opts),
		newConvertCommand(opts),
		newStatusCommand(opts),
		newDiagnoseCommand(opts),
		newRankCommand(opts),
		newSymptomsCommand(opts),
		newDiseaseCommand(opts),
		newSearchCommand(opts),
		newRulesCommand(opts),
		newAddSymptomCommand(opts),
		newRenameSymptomCommand(opts),
		newDeleteSymptomCommand(opts),
		newAddDiseaseCommand(opts),
		newDeleteDiseaseCommand(opts),
		newAddRuleCommand(opts),
		newDeleteRuleCommand(opts),
		newHistoryCommand(opts),
	)

	return root
}

// Execute runs kbsctl with os.Args and returns the process exit code.
func Execute(version string) int {
	root := NewRootCommand(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

// newService opens the knowledge file named by --kb. Nothing is cached
// between invocations.
func (o *options) newService() *service.KnowledgeService {
	logger := logging.NewWithOutput(o.logLevel, "text", os.Stderr)
	store := knowledge.NewStore(logger, knowledge.StoreOptions{})
	return service.NewKnowledgeService(logger, knowledge.NewFileSource(o.kbPath), store)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
