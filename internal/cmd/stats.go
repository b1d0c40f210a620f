package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookflow/hookflow/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the effective kernel configuration",
	Long: `Display the effective configuration the kernel would run with:
bus sizing, circuit breaker thresholds, retry policy, cache TTL, and
how many hooks are declared.`,
	RunE: runStats,
}

var statsJSON bool // Output as JSON

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output configuration as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if statsJSON {
		out := map[string]any{
			"environment":  cfg.Kernel.Environment,
			"soft_latency": cfg.Kernel.SoftLatency().String(),
			"bus": map[string]any{
				"queue_size":   cfg.Bus.QueueSize,
				"batch_size":   cfg.Bus.BatchSize,
				"drain_tick":   cfg.Bus.DrainTick().String(),
				"history_size": cfg.Bus.HistorySize,
			},
			"breaker": map[string]any{
				"window_size":   cfg.Breaker.WindowSize,
				"threshold":     cfg.Breaker.Threshold,
				"reset_timeout": cfg.Breaker.ResetTimeout().String(),
			},
			"retry": map[string]any{
				"max_attempts": cfg.Retry.MaxAttempts,
				"delay":        cfg.Retry.Delay().String(),
				"backoff":      cfg.Retry.Backoff,
				"max_delay":    cfg.Retry.MaxDelay().String(),
			},
			"cache_ttl": cfg.Cache.TTL().String(),
			"hooks":     len(cfg.Hooks),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println()
	fmt.Println("KERNEL CONFIGURATION")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Environment:  %s\n", cfg.Kernel.Environment)
	fmt.Printf("Soft latency: %s\n", cfg.Kernel.SoftLatency())
	fmt.Printf("Hooks:        %d declared\n", len(cfg.Hooks))
	fmt.Println()

	fmt.Println("EVENT BUS")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Queue size:  %d\n", cfg.Bus.QueueSize)
	fmt.Printf("Batch size:  %d\n", cfg.Bus.BatchSize)
	fmt.Printf("Drain tick:  %s\n", cfg.Bus.DrainTick())
	fmt.Printf("History:     %d events\n", cfg.Bus.HistorySize)
	fmt.Println()

	fmt.Println("CIRCUIT BREAKER")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Window:        %d outcomes\n", cfg.Breaker.WindowSize)
	fmt.Printf("Threshold:     %.0f%%\n", cfg.Breaker.Threshold*100)
	fmt.Printf("Reset timeout: %s\n", cfg.Breaker.ResetTimeout())
	fmt.Println()

	fmt.Println("RETRY POLICY")
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("Backoff:      %s from %s, capped at %s\n",
		cfg.Retry.Backoff, cfg.Retry.Delay(), cfg.Retry.MaxDelay())
	fmt.Printf("Cache TTL:    %s\n", cfg.Cache.TTL())
	return nil
}
