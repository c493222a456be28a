package main

import (
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "questctl",
		Short:         "Language-learning quest tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("catalog", "", "Catalog directory (overrides LEARN_CATALOG_PATH; empty uses the built-in catalog)")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newLessonsCmd())
	root.AddCommand(newExportCmd())
	return root
}

// resolveCatalog loads the catalog from --catalog, then LEARN_CATALOG_PATH,
// then the built-in seed.
func resolveCatalog(cmd *cobra.Command, fallback string) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = fallback
	}
	if path == "" {
		return catalog.LoadDefault()
	}
	return catalog.Load(path)
}
