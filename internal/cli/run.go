package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/toolcore"
	"github.com/harun/toolcore/pkg/tool"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	runArgsJSON string
	runPromptID string
	runAuto     bool
)

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Execute a single tool call",
	Long: `Execute one tool call through the full pipeline: validation, hooks,
approval, execution. Arguments are passed as a JSON object.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runArgsJSON, "args", "{}", "tool arguments as a JSON object")
	runCmd.Flags().StringVar(&runPromptID, "prompt-id", "", "prompt id recorded with the call")
	runCmd.Flags().BoolVar(&runAuto, "yes", false, "approve without prompting")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runAuto {
		cfg.Approval.Mode = "auto"
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer lg.Close()

	var toolArgs map[string]interface{}
	if err := json.Unmarshal([]byte(runArgsJSON), &toolArgs); err != nil {
		return fmt.Errorf("invalid --args JSON: %w", err)
	}

	rt, err := toolcore.NewRuntime(toolcore.RuntimeOptions{
		Config:          cfg,
		Logger:          lg.Zerolog(),
		ApprovalHandler: NewApprovalPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	callID, err := gonanoid.New()
	if err != nil {
		return err
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	responses, batchStop := rt.Schedule(ctx, []tool.CallRequest{{
		CallID:          callID,
		Name:            args[0],
		Args:            toolArgs,
		ClientInitiated: true,
		PromptID:        runPromptID,
	}})

	resp := responses[0]
	fmt.Fprintln(cmd.OutOrStdout(), resp.Display)
	if batchStop != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "batch stopped by hook: %s\n", batchStop.Reason)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", resp.ErrorType, resp.Error)
	}
	return nil
}
