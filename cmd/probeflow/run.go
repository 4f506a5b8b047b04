package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/ProbeFlow"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the runtime: bridge collector, ingestion, metrics and read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			replay, _ := cmd.Flags().GetString("replay")
			period, _ := cmd.Flags().GetUint32("period")

			flow, err := probeflow.Conf(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if replay != "" {
				flow.StreamIN(probeflow.StreamInReplay(probeflow.ReplayConfig{Path: replay, SamplePeriodMs: period}))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return flow.Run(ctx)
		},
	}

	cmd.Flags().String("replay", "", "Replay an exported CSV file instead of subscribing to the bridge")
	cmd.Flags().Uint32("period", 1000, "Sample period in ms assumed for replayed sessions")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := probeflow.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			fmt.Printf("config %s looks good ✅\n", cfgPath)
			fmt.Printf("  wal:     %s\n", cfg.WAL.Dir)
			fmt.Printf("  bridge:  %s\n", valueOrDefault(cfg.Bridge.URL, "disabled"))
			if cfg.Archive.Enabled {
				fmt.Printf("  archive: %s (%s)\n", cfg.Archive.Driver, cfg.Archive.Table)
			} else {
				fmt.Println("  archive: disabled")
			}
			fmt.Printf("  exports: %s\n", cfg.Export.Dir)
			return nil
		},
	}
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
