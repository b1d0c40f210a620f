package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookflow/hookflow/internal/config"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List configured hooks",
	Long: `Display the hooks declared in the configuration file, after
normalization, including their strategy, agents, and dependencies.`,
	RunE: runHooks,
}

var hooksJSON bool // Output as JSON

func init() {
	hooksCmd.Flags().BoolVar(&hooksJSON, "json", false, "Output hooks as JSON")
	rootCmd.AddCommand(hooksCmd)
}

func runHooks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(cfg.Hooks) == 0 {
		fmt.Println("No hooks configured")
		return nil
	}

	if hooksJSON {
		hooks := make([]any, 0, len(cfg.Hooks))
		for _, d := range cfg.Hooks {
			hooks = append(hooks, d.ToHook())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hooks)
	}

	fmt.Println()
	fmt.Printf("CONFIGURED HOOKS (%d)\n", len(cfg.Hooks))
	fmt.Println(strings.Repeat("-", 50))
	for _, d := range cfg.Hooks {
		h := d.ToHook()
		state := "disabled"
		if h.Enabled {
			state = "enabled"
		}
		fmt.Printf("%s (%s)\n", h.ID, state)
		fmt.Printf("  on:       %s/%s, priority %d\n", h.Kind, h.Phase, h.Priority)
		fmt.Printf("  strategy: %s, timeout %s\n", h.Config.Strategy, h.Config.Timeout)
		fmt.Printf("  agents:   %s\n", strings.Join(h.Agents, ", "))
		if len(h.DependsOn) > 0 {
			fmt.Printf("  needs:    %s\n", strings.Join(h.DependsOn, ", "))
		}
		fmt.Println()
	}
	return nil
}
