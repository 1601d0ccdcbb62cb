package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// errInvalidTemplate is returned after the problems have been printed.
var errInvalidTemplate = errors.New("template has problems")

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <template>",
		Short: "List the tags of a template and check it",
		Long: `Inspect lists every tag of a template with its part and kind, checks that
sections are properly nested and that the package is consistent. It exits
with an error when any problem is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := a.engine()
			defer engine.Close()

			report, err := engine.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PART\tKIND\tTAG\tOFFSET")
				for _, tag := range report.Tags {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", tag.Part, tag.Kind, tag.Raw, tag.Offset)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			if report.Valid() {
				a.logger.WithField("tags", len(report.Tags)).Info("Template %s is valid", args[0])
				return nil
			}
			errOut := cmd.ErrOrStderr()
			for _, problem := range report.Problems.Errors() {
				fmt.Fprintf(errOut, "problem: %v\n", problem)
			}
			for _, issue := range report.Issues {
				fmt.Fprintf(errOut, "package: %s\n", issue)
			}
			return errInvalidTemplate
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
