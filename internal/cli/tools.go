package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rs/zerolog"

	"github.com/harun/toolcore/pkg/coretools"
	"github.com/harun/toolcore/pkg/proc"
	"github.com/harun/toolcore/pkg/shell"
	"github.com/harun/toolcore/pkg/tool"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := tool.NewRegistry()
	shellSvc := shell.NewService(zerolog.Nop(), proc.NewManager(zerolog.Nop()))
	if err := coretools.Register(registry, coretools.Options{
		WorkspaceRoot: cfg.WorkspaceRoot,
		Shell:         shellSvc,
	}); err != nil {
		return err
	}

	names := registry.Names()
	sort.Strings(names)
	for _, name := range names {
		impl, _ := registry.Lookup(name)
		access := "read-only"
		if !impl.ReadOnly() {
			access = "mutating"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %s\n", name, access, impl.DisplayName())
	}
	return nil
}
