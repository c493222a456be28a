package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load a catalog and report its size and fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := resolveCatalog(cmd, os.Getenv("LEARN_CATALOG_PATH"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lessons:     %d\n", cat.LessonCount())
			fmt.Fprintf(out, "questions:   %d\n", cat.QuestionCount())
			fmt.Fprintf(out, "fingerprint: %s\n", cat.Fingerprint())
			return nil
		},
	}
}
