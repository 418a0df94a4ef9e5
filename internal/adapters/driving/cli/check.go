package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driving"
	"github.com/attesta-labs/attesta-cli/internal/logger"
)

// pollInterval is how often progress is sampled while following a run.
const pollInterval = time.Second

var (
	checkSheetName   string
	checkStatusWatch bool
	checkResultsJSON bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run compliance checks against a document",
	Long: `Create, follow and inspect check runs.

A check run evaluates every criterion of a checklist sheet against one
ingested document, producing PASS/FAIL/UNKNOWN verdicts with grounded
evidence quotes.`,
}

var checkStartCmd = &cobra.Command{
	Use:   "start [document-id]",
	Short: "Start a check run",
	Long: `Creates a check run for a document and sheet and executes it.

The command follows the run until it finishes. Interrupting (Ctrl-C)
requests cooperative cancellation: the in-flight batch completes and
its results are preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckStart,
}

var checkStatusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show check run progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckStatus,
}

var checkStopCmd = &cobra.Command{
	Use:   "stop [run-id]",
	Short: "Request cancellation of an active run",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckStop,
}

var checkResultsCmd = &cobra.Command{
	Use:   "results [run-id]",
	Short: "Show check run results",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckResults,
}

func init() {
	checkStartCmd.Flags().StringVarP(&checkSheetName, "sheet", "s", "", "checklist sheet to evaluate (required)")
	_ = checkStartCmd.MarkFlagRequired("sheet") //nolint:errcheck // flag exists
	checkStatusCmd.Flags().BoolVarP(&checkStatusWatch, "watch", "w", false, "poll until the run finishes")
	checkResultsCmd.Flags().BoolVar(&checkResultsJSON, "json", false, "output results as JSON")

	checkCmd.AddCommand(checkStartCmd)
	checkCmd.AddCommand(checkStatusCmd)
	checkCmd.AddCommand(checkStopCmd)
	checkCmd.AddCommand(checkResultsCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckStart(cmd *cobra.Command, args []string) error {
	if checkService == nil {
		return errors.New("check service not configured")
	}

	documentID := args[0]
	ctx := context.Background()

	run, err := checkService.CreateRun(ctx, documentID, checkSheetName)
	if err != nil {
		return fmt.Errorf("creating check run: %w", err)
	}
	cmd.Printf("Run ID: %s\n", run.ID)

	// Prompt edits made while the run executes take effect on the next
	// criterion, not the next invocation.
	if promptStore != nil {
		if err := promptStore.Watch(ctx); err != nil {
			logger.Debug("Prompt watcher unavailable: %v", err)
		}
	}

	if err := checkService.StartRun(ctx, run.ID); err != nil {
		return fmt.Errorf("starting check run: %w", err)
	}

	// Ctrl-C stops the run instead of abandoning it mid-batch.
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return followRun(cmd, signalCtx, run.ID)
}

// followRun polls run progress until a terminal state, cancelling the
// run when ctx is interrupted.
func followRun(cmd *cobra.Command, ctx context.Context, runID string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Disarmed after the first interrupt so polling continues while the
	// run winds down.
	interrupt := ctx.Done()
	for {
		select {
		case <-interrupt:
			interrupt = nil
			cmd.Println("\nStopping run...")
			checkService.StopRun(runID)
		case <-ticker.C:
		}

		progress, err := checkService.Progress(context.Background(), runID)
		if err != nil {
			return fmt.Errorf("reading run progress: %w", err)
		}

		cmd.Printf("\r%s: %d%% (%d/%d)   ",
			progress.Status, progress.Progress, progress.CompletedItems, progress.TotalItems)

		if progress.Status.IsTerminal() && !checkService.IsActive(runID) {
			cmd.Println()
			return printRunOutcome(cmd, runID, progress)
		}
	}
}

// printRunOutcome prints the final summary for a finished run.
func printRunOutcome(cmd *cobra.Command, runID string, progress *driving.RunProgress) error {
	if progress.Status == domain.RunStatusFailed {
		cmd.Printf("Run failed: %s\n", progress.Error)
		if progress.CompletedItems > 0 {
			cmd.Printf("%d result(s) were preserved. See 'attesta check results %s'.\n",
				progress.CompletedItems, runID)
		}
		return nil
	}

	results, err := checkService.Results(context.Background(), runID)
	if err != nil {
		return fmt.Errorf("reading results: %w", err)
	}

	counts := map[domain.VerdictStatus]int{}
	for i := range results {
		counts[results[i].Status]++
	}
	cmd.Printf("Completed: %d PASS, %d FAIL, %d UNKNOWN\n",
		counts[domain.VerdictPass], counts[domain.VerdictFail], counts[domain.VerdictUnknown])
	cmd.Printf("See 'attesta check results %s' for details.\n", runID)
	return nil
}

func runCheckStatus(cmd *cobra.Command, args []string) error {
	if checkService == nil {
		return errors.New("check service not configured")
	}

	runID := args[0]
	ctx := context.Background()

	for {
		progress, err := checkService.Progress(ctx, runID)
		if err != nil {
			return fmt.Errorf("reading run progress: %w", err)
		}

		cmd.Printf("Status: %s\n", progress.Status)
		cmd.Printf("Progress: %d%% (%d/%d items)\n",
			progress.Progress, progress.CompletedItems, progress.TotalItems)
		if progress.Error != "" {
			cmd.Printf("Error: %s\n", progress.Error)
		}

		if !checkStatusWatch || progress.Status.IsTerminal() {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

func runCheckStop(cmd *cobra.Command, args []string) error {
	if checkService == nil {
		return errors.New("check service not configured")
	}

	runID := args[0]
	if !checkService.IsActive(runID) {
		cmd.Println("Run is not active.")
		return nil
	}

	checkService.StopRun(runID)
	cmd.Println("Cancellation requested. The in-flight batch will complete.")
	return nil
}

func runCheckResults(cmd *cobra.Command, args []string) error {
	if checkService == nil {
		return errors.New("check service not configured")
	}

	runID := args[0]
	results, err := checkService.Results(context.Background(), runID)
	if err != nil {
		return fmt.Errorf("reading results: %w", err)
	}

	if checkResultsJSON {
		return outputResultsJSON(cmd, results)
	}
	return outputResultsTable(cmd, results)
}

func outputResultsJSON(cmd *cobra.Command, results []domain.CheckResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultsTable(cmd *cobra.Command, results []domain.CheckResult) error {
	if len(results) == 0 {
		cmd.Println("No results yet.")
		return nil
	}

	for i := range results {
		r := &results[i]
		cmd.Printf("[%s] %s (confidence %.2f)\n", r.Status, r.ChecklistItemID, r.Confidence)
		if r.Reasoning != "" {
			cmd.Printf("    %s\n", r.Reasoning)
		}
		for _, ev := range r.Evidence {
			cmd.Printf("    p.%d: %q\n", ev.Page, ev.Quote)
		}
		cmd.Println()
	}
	return nil
}
