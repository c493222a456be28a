package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

func newLessonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List lessons (optionally filtered by level or type)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			typ, _ := cmd.Flags().GetString("type")

			if level != "" && !catalog.Level(level).Valid() {
				return fmt.Errorf("unknown level %q", level)
			}
			if typ != "" && !catalog.LessonType(typ).Valid() {
				return fmt.Errorf("unknown lesson type %q", typ)
			}

			cat, err := resolveCatalog(cmd, os.Getenv("LEARN_CATALOG_PATH"))
			if err != nil {
				return err
			}
			lessons := cat.ListLessons(catalog.Level(level), catalog.LessonType(typ))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%5s  %-32s  %-5s  %-10s  %4s  %5s  %s\n",
				"ID", "Title", "Level", "Type", "XP", "Coins", "Questions")
			fmt.Fprintln(out, strings.Repeat("\u2500", 84))
			for _, l := range lessons {
				title := l.Title
				if len(title) > 32 {
					title = title[:29] + "..."
				}
				fmt.Fprintf(out, "%5d  %-32s  %-5s  %-10s  %4d  %5d  %d\n",
					l.ID, title, l.Level, l.Type, l.ExperienceReward, l.CoinReward,
					len(cat.QuestionsForLesson(l.ID)))
			}
			fmt.Fprintf(out, "\n%d lessons\n", len(lessons))
			return nil
		},
	}
	cmd.Flags().String("level", "", "Filter by CEFR level (A1..C2)")
	cmd.Flags().String("type", "", "Filter by lesson type (e.g. vocabulary)")
	return cmd
}
