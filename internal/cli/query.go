package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a knowledge base against the schema and for rule conflicts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.kbPath
			if len(args) == 1 {
				path = args[0]
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			svc := opts.newService()
			defer svc.Close()

			report, err := svc.Validate(raw, knowledge.FormatForPath(path))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				if err := printJSON(out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%s: %s\n", path, report.Status)
				for _, e := range report.Errors {
					fmt.Fprintf(out, "  error: %s\n", e)
				}
				for _, w := range report.Warnings {
					fmt.Fprintf(out, "  warning: %s\n", w)
				}
			}

			if !report.Valid {
				return fmt.Errorf("%s has %d schema errors", path, len(report.Errors))
			}
			return nil
		},
	}
}

func newConvertCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Rewrite a knowledge base as JSON or YAML, chosen by the output extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, outPath := args[0], args[1]

			raw, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", in, err)
			}
			doc, err := knowledge.Parse(raw, knowledge.FormatForPath(in))
			if err != nil {
				return err
			}
			if ok, errs := knowledge.ValidateSchema(doc); !ok {
				return &domain.SchemaError{Errors: errs}
			}
			kb, err := knowledge.Decode(doc)
			if err != nil {
				return err
			}

			encoded, err := knowledge.Encode(kb, knowledge.FormatForPath(outPath))
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, encoded, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d diseases, %d rules)\n", outPath, len(kb.Diseases), len(kb.Rules))
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the knowledge base and report its version and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			_, loadErr := svc.Snapshot(cmd.Context())
			status := svc.Status()

			out := cmd.OutOrStdout()
			if opts.asJSON {
				if err := printJSON(out, status); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Source: %s\nStatus: %s\n", svc.SourceKey(), status.Status)
				if status.Version != "" {
					fmt.Fprintf(out, "Version: %s (last updated %s)\n", status.Version, status.LastUpdated)
				}
				for _, w := range status.Warnings {
					fmt.Fprintf(out, "Warning: %s\n", w)
				}
				for _, e := range status.Errors {
					fmt.Fprintf(out, "Error: %s\n", e)
				}
			}
			return loadErr
		},
	}
}

func newDiagnoseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <symptom>...",
		Short: "Rank candidate diseases for the reported symptoms using the rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			d, err := svc.Diagnose(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				return printJSON(out, d)
			}
			if len(d.Results) == 0 {
				fmt.Fprintln(out, "No rule matched the reported symptoms.")
				return nil
			}
			for i, r := range d.Results {
				fmt.Fprintf(out, "%d. %s (%s) %.0f%%\n   %s\n", i+1, r.DiseaseName, r.DiseaseID, r.Confidence*100, r.Explanation)
			}
			return nil
		},
	}
}

func newRankCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <symptom>...",
		Short: "Score diseases by direct symptom overlap, without rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			matches, err := svc.RankConditions(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				return printJSON(out, matches)
			}
			for i, m := range matches {
				fmt.Fprintf(out, "%d. %s (%s) %.2f [%s]\n", i+1, m.Disease.Name, m.Disease.ID, m.Score, strings.Join(m.MatchedSymptoms, ", "))
			}
			return nil
		},
	}
}

func newSymptomsCommand(opts *options) *cobra.Command {
	var registered bool

	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "List every symptom a disease or rule mentions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			list := svc.Symptoms
			if registered {
				list = svc.RegisteredSymptoms
			}
			symptoms, err := list(cmd.Context())
			if err != nil {
				return err
			}
			return printList(cmd, opts, symptoms)
		},
	}
	cmd.Flags().BoolVar(&registered, "registered", false, "list the managed registry instead")
	return cmd
}

func newDiseaseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disease <id>",
		Short: "Show one disease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			d, err := svc.Disease(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				return printJSON(out, d)
			}
			fmt.Fprintf(out, "%s (%s)\n", d.Name, d.ID)
			if d.Description != "" {
				fmt.Fprintln(out, d.Description)
			}
			fmt.Fprintf(out, "Symptoms:    %s\n", strings.Join(d.Symptoms, ", "))
			fmt.Fprintf(out, "Diagnostics: %s\n", strings.Join(d.Diagnostics, ", "))
			fmt.Fprintf(out, "Treatment:   %s\n", strings.Join(d.Treatment, ", "))
			if d.References != "" {
				fmt.Fprintf(out, "References:  %s\n", d.References)
			}
			return nil
		},
	}
}

func newSearchCommand(opts *options) *cobra.Command {
	var name, symptomName string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find diseases by name and/or symptom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			diseases, err := svc.SearchDiseases(cmd.Context(), name, symptomName)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), diseases)
			}
			for _, d := range diseases {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "substring of the disease name")
	cmd.Flags().StringVar(&symptomName, "symptom", "", "symptom the disease lists")
	return cmd
}

func newRulesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.newService()
			defer svc.Close()

			rules, err := svc.Rules(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), rules)
			}
			for _, r := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tIF %s THEN %s (%.2f)\n",
					r.ID, strings.Join(r.IfSymptoms, " AND "), r.ThenDiseaseID, r.Confidence)
			}
			return nil
		},
	}
}

func printList(cmd *cobra.Command, opts *options, items []string) error {
	if opts.asJSON {
		return printJSON(cmd.OutOrStdout(), items)
	}
	for _, item := range items {
		fmt.Fprintln(cmd.OutOrStdout(), item)
	}
	return nil
}
