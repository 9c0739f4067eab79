package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rs/zerolog"

	"github.com/harun/toolcore/pkg/history"
)

var (
	historyLimit  int
	historyPrompt string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded tool calls",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
	historyCmd.Flags().StringVar(&historyPrompt, "prompt-id", "", "show only calls recorded under this prompt id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.DBPath == "" {
		return fmt.Errorf("history db path is not configured")
	}

	store, err := history.NewStore(history.Config{
		DBPath: cfg.History.DBPath,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	var entries []history.Entry
	if historyPrompt != "" {
		entries, err = store.ForPrompt(cmd.Context(), historyPrompt)
	} else {
		entries, err = store.Recent(cmd.Context(), historyLimit)
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded tool calls")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-20s %-10s %s",
			e.FinishedAt.Format("2006-01-02 15:04:05"), e.ToolName, e.State, e.Display)
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
