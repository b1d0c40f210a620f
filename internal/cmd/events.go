package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookflow/hookflow/internal/config"
	"github.com/hookflow/hookflow/internal/event"
	"github.com/hookflow/hookflow/internal/util"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Process a single event and print the result",
	Long: `Build a kernel from the configuration, register the demo agents,
process one event described by the flags, and print the aggregated result.`,
	RunE: runEvents,
}

var (
	eventKind      string
	eventPhase     string
	eventOperation string
	eventPriority  string
	eventsJSON     bool // Output as JSON
)

func init() {
	eventsCmd.Flags().StringVar(&eventKind, "kind", "task.created", "Event kind")
	eventsCmd.Flags().StringVar(&eventPhase, "phase", "pre", "Event phase (pre or post)")
	eventsCmd.Flags().StringVar(&eventOperation, "operation", "create", "Event operation")
	eventsCmd.Flags().StringVar(&eventPriority, "priority", "medium", "Event priority (critical, high, medium, low)")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output the result as JSON")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	defer logger.Close()

	mgr, _, err := buildKernel(cfg, logger)
	if err != nil {
		return err
	}
	if err := demoRoster(mgr); err != nil {
		return fmt.Errorf("failed to register demo agents: %w", err)
	}

	evt := event.New(eventKind, event.Phase(eventPhase), eventOperation,
		event.Priority(eventPriority), nil)

	res, err := mgr.Process(context.Background(), evt)
	if err != nil {
		return err
	}

	if eventsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	status := "FAILED"
	if res.Success {
		status = "OK"
	}
	fmt.Printf("%s  %s/%s (%s) in %s\n", status, evt.Kind, evt.Phase, evt.Priority, res.Elapsed)
	if len(res.Meta.Participants) > 0 {
		fmt.Printf("hooks:   %v\n", res.Meta.Participants)
		fmt.Printf("payload: %s\n", util.TruncateString(fmt.Sprintf("%v", res.Payload), 120))
	} else {
		fmt.Println("no hooks matched")
	}
	for _, e := range res.Errors {
		fmt.Printf("error: %v\n", e)
	}
	return nil
}
