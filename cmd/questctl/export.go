package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quest/internal/engine"
	"github.com/p-n-ai/pai-quest/internal/platform/config"
	"github.com/p-n-ai/pai-quest/internal/platform/database"
	"github.com/p-n-ai/pai-quest/internal/progress"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a leaderboard as an XLSX workbook",
		Long: "Export ranks every user for the period and writes an XLSX workbook. " +
			"Progress is read from PostgreSQL when LEARN_STORE_BACKEND=postgres.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetString("period")
			outPath, _ := cmd.Flags().GetString("out")
			if outPath == "" {
				outPath = fmt.Sprintf("leaderboard-%s.xlsx", period)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cat, err := resolveCatalog(cmd, cfg.CatalogPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ecfg := engine.Config{Catalog: cat}
			if cfg.UsesPostgres() {
				db, err := database.New(ctx, cfg.Database)
				if err != nil {
					return fmt.Errorf("connect database: %w", err)
				}
				defer db.Close()
				store, err := progress.NewPostgresStore(db.Pool)
				if err != nil {
					return err
				}
				ecfg.Store = store
			}

			eng, err := engine.New(ecfg)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := eng.ExportLeaderboard(ctx, &buf, period); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, buf.Len())
			return nil
		},
	}
	cmd.Flags().String("period", "all_time", "Ranking window: weekly, monthly or all_time")
	cmd.Flags().String("out", "", "Output file (default leaderboard-<period>.xlsx)")
	return cmd
}
