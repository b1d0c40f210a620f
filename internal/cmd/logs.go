package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookflow/hookflow/internal/config"
	"github.com/hookflow/hookflow/internal/logging"
	"github.com/hookflow/hookflow/internal/util"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and export kernel logs",
	Long: `Read the kernel log file, filter entries by level, component, hook,
or execution, and print them or export them to a file.`,
	RunE: runLogs,
}

var (
	logsLevel     string // Minimum level to include
	logsComponent string // Filter by component
	logsHook      string // Filter by hook ID
	logsExecution string // Filter by execution ID
	logsContains  string // Filter by message substring
	logsExport    string // Export destination file
	logsFormat    string // Export format: json, text, csv
)

func init() {
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum log level (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component")
	logsCmd.Flags().StringVar(&logsHook, "hook", "", "Filter by hook ID")
	logsCmd.Flags().StringVar(&logsExecution, "execution", "", "Filter by execution ID")
	logsCmd.Flags().StringVar(&logsContains, "contains", "", "Filter by message substring")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write entries to this file instead of stdout")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Export format: json, text, or csv")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	entries, err := logging.AggregateLogs(config.ConfigDir())
	if err != nil {
		return err
	}

	entries = logging.FilterLogs(entries, logging.LogFilter{
		Level:           logsLevel,
		Component:       logsComponent,
		HookID:          logsHook,
		ExecutionID:     logsExecution,
		MessageContains: logsContains,
	})

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Printf("exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("no matching log entries")
		return nil
	}
	for _, e := range entries {
		var ctx []string
		if e.Component != "" {
			ctx = append(ctx, e.Component)
		}
		if e.HookID != "" {
			ctx = append(ctx, "hook="+e.HookID)
		}
		scope := ""
		if len(ctx) > 0 {
			scope = " (" + strings.Join(ctx, ", ") + ")"
		}
		fmt.Printf("%s %-5s %s%s\n",
			e.Timestamp.Format("15:04:05.000"), e.Level,
			util.TruncateString(e.Message, 100), scope)
	}
	fmt.Printf("\n%d entries\n", len(entries))
	return nil
}
