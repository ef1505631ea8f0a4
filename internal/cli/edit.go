package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

func newAddSymptomCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add-symptom <name>",
		Short: "Add a symptom to the managed registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			added, err := svc.AddSymptom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%q is already registered\n", args[0])
			}
			return nil
		},
	}
}

func newRenameSymptomCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-symptom <old> <new>",
		Short: "Rename a symptom in the registry, every disease and every rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			changed, err := svc.RenameSymptom(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q\n", args[0], args[1])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed")
			}
			return nil
		},
	}
}

func newDeleteSymptomCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-symptom <name>",
		Short: "Remove a symptom from the registry, every disease and every rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			if err := svc.DeleteSymptom(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
			return nil
		},
	}
}

func newAddDiseaseCommand(opts *options) *cobra.Command {
	var in knowledge.DiseaseInput

	cmd := &cobra.Command{
		Use:   "add-disease <name>",
		Short: "Add a disease; its id is derived from the name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			in.Name = args[0]
			d, err := svc.AddDisease(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), d)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added disease %s\n", d.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "short description")
	cmd.Flags().StringSliceVar(&in.Symptoms, "symptoms", nil, "comma separated symptoms")
	cmd.Flags().StringSliceVar(&in.Diagnostics, "diagnostics", nil, "comma separated diagnostic tests")
	cmd.Flags().StringSliceVar(&in.Treatment, "treatment", nil, "comma separated treatments")
	cmd.Flags().StringVar(&in.References, "references", "", "reference text or URL")
	return cmd
}

func newDeleteDiseaseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-disease <id>",
		Short: "Remove a disease; rules that conclude it are left dangling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			if err := svc.DeleteDisease(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted disease %s\n", args[0])
			return nil
		},
	}
}

func newAddRuleCommand(opts *options) *cobra.Command {
	var in knowledge.RuleInput

	cmd := &cobra.Command{
		Use:   "add-rule",
		Short: "Add a rule: IF all symptoms THEN disease, with a confidence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			r, err := svc.AddRule(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), r)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s\n", r.ID)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&in.IfSymptoms, "if", nil, "comma separated antecedent symptoms")
	cmd.Flags().StringVar(&in.ThenDiseaseID, "then", "", "concluded disease id")
	cmd.Flags().Float64Var(&in.Confidence, "confidence", 0.5, "rule confidence between 0 and 1")
	cmd.Flags().StringVar(&in.Name, "name", "", "seed for the rule id")
	return cmd
}

func newDeleteRuleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-rule <id>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			if err := svc.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted rule %s\n", args[0])
			return nil
		},
	}
}

func defaultHistoryPath() string {
	if dir := os.Getenv("KBS_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "history.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".symptom-kbs", "history.db")
}

func newHistoryCommand(opts *options) *cobra.Command {
	var dbPath string
	var limit int
	var export bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or export the search history recorded by the lite server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if export {
				return store.ExportJSON(ctx, out)
			}

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(out, entries)
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\t%v\t%s\t%.2f\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Symptoms, e.TopDiseaseID, e.TopConfidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultHistoryPath(), "history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "entries to show")
	cmd.Flags().BoolVar(&export, "export", false, "write every entry as JSON")
	return cmd
}
